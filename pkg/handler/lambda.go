package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/provoke-dev/provoke/pkg/models"
)

// LambdaInvoker drives the handler through the Lambda Invoke API, either
// against AWS proper or a local runtime emulator behind a custom endpoint.
type LambdaInvoker struct {
	client   *lambda.Client
	function string
	target   string
	timeout  time.Duration
}

var _ Invoker = (*LambdaInvoker)(nil)

// NewLambdaInvoker creates the SDK client. Custom endpoints get static
// placeholder credentials so a local emulator works without a configured
// AWS account.
func NewLambdaInvoker(ctx context.Context, cfg Config) (*LambdaInvoker, error) {
	var cfgOptions []func(*config.LoadOptions) error
	var lambdaClientOptions []func(*lambda.Options)

	if cfg.Endpoint != "" {
		customResolver := NewEndpointResolver(cfg.Endpoint)
		lambdaClientOptions = append(lambdaClientOptions, lambda.WithEndpointResolverV2(customResolver))
		cfgOptions = append(cfgOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("provoke", "provoke", "")))
	}

	if cfg.Profile != "" {
		cfgOptions = append(cfgOptions, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.Region != "" {
		cfgOptions = append(cfgOptions, config.WithRegion(cfg.Region))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, cfgOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	target := cfg.Endpoint
	if target == "" {
		target = "lambda:" + cfg.Function
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &LambdaInvoker{
		client:   lambda.NewFromConfig(sdkConfig, lambdaClientOptions...),
		function: cfg.Function,
		target:   target,
		timeout:  timeout,
	}, nil
}

// Invoke calls the handler function synchronously and returns its payload.
func (li *LambdaInvoker) Invoke(ctx context.Context, invReq models.InvocationRequest) ([]byte, error) {
	payload, err := json.Marshal(invReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, li.timeout)
	defer cancel()

	out, err := li.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(li.function),
		Payload:      payload,
	})
	if err != nil {
		return nil, classify(err, li.target)
	}

	// The Invoke API reports unhandled handler exceptions in-band, not as
	// an SDK error.
	if out.FunctionError != nil {
		return nil, &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: li.target,
			Detail:   fmt.Sprintf("handler raised %s: %s", aws.ToString(out.FunctionError), models.Snippet(out.Payload)),
		}
	}

	if len(out.Payload) == 0 {
		return nil, &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: li.target,
			Detail:   "handler returned an empty payload",
		}
	}

	return out.Payload, nil
}

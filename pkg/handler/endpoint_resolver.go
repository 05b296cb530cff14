package handler

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	smithyendpoints "github.com/aws/smithy-go/endpoints"
)

// EndpointResolver implements the lambda.EndpointResolverV2 interface to provide a custom endpoint.
type EndpointResolver struct {
	endpointURL string
}

func NewEndpointResolver(endpointURL string) *EndpointResolver {
	return &EndpointResolver{endpointURL: endpointURL}
}

// ResolveEndpoint resolves the endpoint for the Lambda Invoke API.
func (r *EndpointResolver) ResolveEndpoint(ctx context.Context, params lambda.EndpointParameters) (smithyendpoints.Endpoint, error) {
	if r.endpointURL == "" {
		// Fallback to default resolver if no custom endpoint is configured.
		return lambda.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, params)
	}

	parsedURL, err := url.Parse(r.endpointURL)
	if err != nil {
		return smithyendpoints.Endpoint{}, &aws.EndpointNotFoundError{Err: fmt.Errorf("failed to parse custom endpoint URL '%s': %w", r.endpointURL, err)}
	}

	return smithyendpoints.Endpoint{
		URI: *parsedURL,
	}, nil
}

// Ensure EndpointResolver implements the interface.
var _ lambda.EndpointResolverV2 = (*EndpointResolver)(nil)

// Package handler delivers invocation requests to a resource handler
// endpoint over one of the supported transports.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Transport names accepted by New.
const (
	TransportHTTP   = "http"
	TransportLambda = "lambda"
)

// Invoker delivers a single invocation request to the handler endpoint and
// returns the raw response payload. Transport faults come back as
// *models.TransportError; the payload is returned unparsed.
type Invoker interface {
	Invoke(ctx context.Context, req models.InvocationRequest) ([]byte, error)
}

// Config describes the handler endpoint an Invoker talks to.
type Config struct {
	Transport string        // "http" or "lambda"
	Endpoint  string        // base URL of the handler endpoint
	Function  string        // function name invoked by the lambda transport
	Region    string        // AWS region for the lambda transport
	Profile   string        // shared config profile for the lambda transport
	AuthToken string        // optional bearer token for the http transport
	Timeout   time.Duration // per-invocation timeout (default 60s)
}

// New creates an Invoker for the configured transport.
func New(ctx context.Context, cfg Config) (Invoker, error) {
	switch cfg.Transport {
	case TransportHTTP, "":
		return NewHTTPInvoker(cfg), nil
	case TransportLambda:
		return NewLambdaInvoker(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Transport)
	}
}

// classify maps a transport-level failure onto a TransportError kind.
// Deadline and net timeouts are reported as timeouts, everything else as a
// connection fault.
func classify(err error, endpoint string) *models.TransportError {
	kind := models.TransportConnection

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = models.TransportTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = models.TransportTimeout
	}

	return &models.TransportError{Kind: kind, Endpoint: endpoint, Err: err}
}

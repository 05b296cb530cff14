package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/tracing"
)

// DefaultTimeout bounds a single invocation round trip when no timeout is
// configured.
const DefaultTimeout = 60 * time.Second

// invokePath is the plain POST route handlers exposed as ordinary HTTP
// services answer on. The lambda transport covers endpoints that speak
// the Lambda Invoke REST surface instead.
const invokePath = "/invoke"

// HTTPInvoker posts invocation requests to a handler running as a plain
// HTTP service.
type HTTPInvoker struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
}

var _ Invoker = (*HTTPInvoker)(nil)

// NewHTTPInvoker creates an invoker for a handler reachable at
// cfg.Endpoint.
func NewHTTPInvoker(cfg Config) *HTTPInvoker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPInvoker{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetAuthToken sets the bearer token sent with every invocation
func (h *HTTPInvoker) SetAuthToken(token string) {
	h.authToken = token
}

// addAuthHeader adds authentication header to request
func (h *HTTPInvoker) addAuthHeader(req *http.Request) {
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
}

// Invoke posts one invocation request and returns the raw response payload.
func (h *HTTPInvoker) Invoke(ctx context.Context, invReq models.InvocationRequest) ([]byte, error) {
	data, err := json.Marshal(invReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.endpoint+invokePath, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	h.addAuthHeader(req)
	tracing.InjectHTTPHeaders(ctx, req)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, classify(err, h.endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, h.endpoint)
	}

	// Lambda-compatible frontends report unhandled handler exceptions
	// through this header with a 200 status, so it has to be checked
	// before the status code.
	if fnErr := resp.Header.Get("X-Amz-Function-Error"); fnErr != "" {
		return nil, &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: h.endpoint,
			Detail:   fmt.Sprintf("handler raised %s: %s", fnErr, models.Snippet(body)),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: h.endpoint,
			Detail:   fmt.Sprintf("invocation failed with status %d: %s", resp.StatusCode, models.Snippet(body)),
		}
	}

	if len(body) == 0 {
		return nil, &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: h.endpoint,
			Detail:   "handler returned an empty payload",
		}
	}

	return body, nil
}

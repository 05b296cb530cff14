package sample_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/provoke-dev/provoke/internal/sample"
	"github.com/provoke-dev/provoke/pkg/handler"
	"github.com/provoke-dev/provoke/pkg/harness"
	"github.com/provoke-dev/provoke/pkg/metrics"
	"github.com/provoke-dev/provoke/pkg/models"
)

func newTestServer(t *testing.T, opts sample.ServerOptions) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	srv, err := sample.NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postInvocation(t *testing.T, url string, req models.InvocationRequest) *http.Response {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServerInvocationRoute(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario: &sample.Scenario{Default: &sample.ActionScript{Steps: 0}},
	})

	url := ts.URL + "/2015-03-31/functions/TestEntrypoint/invocations"
	resp := postInvocation(t, url, request(models.ActionCreate, nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var event models.ProgressEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if event.Status != models.StatusSuccess {
		t.Errorf("status = %v, want SUCCESS", event.Status)
	}
}

func TestServerPlainInvokeRoute(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario: &sample.Scenario{Default: &sample.ActionScript{Steps: 0}},
	})

	resp := postInvocation(t, ts.URL+"/invoke", request(models.ActionRead, nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServerRejectsGarbageBody(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{})

	resp, err := http.Post(ts.URL+"/invoke", "application/json", strings.NewReader("{{{"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestServerHealth(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("health status = %v, want healthy", health["status"])
	}
}

func TestServerThrottling(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario:    &sample.Scenario{Default: &sample.ActionScript{Steps: 0}},
		ThrottleRPS: 1,
	})
	url := ts.URL + "/invoke"

	req := request(models.ActionCreate, nil)

	// Burst of one: the first request passes, the second is throttled
	// in-band with a legal FAILED/Throttling response.
	resp := postInvocation(t, url, req)
	var event models.ProgressEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode first response: %v", err)
	}
	if event.Status != models.StatusSuccess {
		t.Fatalf("first status = %v, want SUCCESS", event.Status)
	}

	resp = postInvocation(t, url, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("throttled status code = %d, want %d (in-band failure)", resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode throttled response: %v", err)
	}
	if event.Status != models.StatusFailed || event.ErrorCode != "Throttling" {
		t.Errorf("throttled event = %v/%s, want FAILED/Throttling", event.Status, event.ErrorCode)
	}

	// A different bearer token has its own budget
	other := req
	other.BearerToken = "other-token"
	resp = postInvocation(t, url, other)
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if event.Status != models.StatusSuccess {
		t.Errorf("other token status = %v, want SUCCESS", event.Status)
	}
}

func TestServerAuth(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario:  &sample.Scenario{Default: &sample.ActionScript{Steps: 0}},
		AuthToken: "sekrit",
	})

	payload, _ := json.Marshal(request(models.ActionCreate, nil))

	// Missing token
	resp, err := http.Post(ts.URL+"/invoke", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// Valid token
	httpReq, _ := http.NewRequest(http.MethodPost, ts.URL+"/invoke", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Health stays open
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d without auth", resp.StatusCode, http.StatusOK)
	}
}

func TestServerMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	ts := newTestServer(t, sample.ServerOptions{
		Scenario:  &sample.Scenario{Default: &sample.ActionScript{Steps: 0}},
		Collector: collector,
		Gatherer:  reg,
	})

	postInvocation(t, ts.URL+"/invoke", request(models.ActionCreate, nil))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	text := buf.String()

	for _, want := range []string{
		"provoke_runs_total",
		`provoke_invocations_total{action="CREATE",function="default",status="SUCCESS"} 1`,
		"provoke_http_requests_total",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

// TestServerDrivesFullRun runs the real invocation loop against the
// fixture endpoint over HTTP, end to end.
func TestServerDrivesFullRun(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario: &sample.Scenario{
			Actions: map[string]*sample.ActionScript{
				"CREATE": {Steps: 2},
				"DELETE": {Steps: 0, Result: "FAILED", ErrorCode: "NotFound"},
			},
		},
	})

	invoker, err := handler.New(context.Background(), handler.Config{
		Transport: handler.TransportHTTP,
		Endpoint:  ts.URL,
		Function:  "TestEntrypoint",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("handler.New() error = %v", err)
	}

	loop := harness.New(invoker, harness.Options{Logger: quietLogger()})

	req, err := harness.NewRequest(models.ActionCreate, []byte(`{"name":"demo"}`), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	report := loop.Run(context.Background(), req)
	if report.State != models.RunStateDoneSuccess {
		t.Fatalf("state = %v, want done_success (err: %v)", report.State, report.Err)
	}
	if report.Invocations != 3 {
		t.Errorf("invocations = %d, want 3", report.Invocations)
	}

	outcome := harness.Outcome(report)
	if outcome.Code != harness.ExitSuccess {
		t.Errorf("exit code = %d, want %d", outcome.Code, harness.ExitSuccess)
	}

	// A scripted failure surfaces the handler's error code verbatim
	req, err = harness.NewRequest(models.ActionDelete, []byte(`{"id":"x"}`), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	report = loop.Run(context.Background(), req)
	if report.State != models.RunStateDoneFailed {
		t.Fatalf("state = %v, want done_failed", report.State)
	}
	if report.LastEvent == nil || report.LastEvent.ErrorCode != "NotFound" {
		t.Errorf("last event = %+v, want errorCode NotFound", report.LastEvent)
	}
}

// TestServerBudgetAgainstEndpoint verifies the reinvocation budget
// against a live endpoint that never terminates.
func TestServerBudgetAgainstEndpoint(t *testing.T) {
	ts := newTestServer(t, sample.ServerOptions{
		Scenario: &sample.Scenario{Default: &sample.ActionScript{Steps: 100}},
	})

	invoker, err := handler.New(context.Background(), handler.Config{
		Endpoint: ts.URL,
		Function: "TestEntrypoint",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("handler.New() error = %v", err)
	}

	max := 2
	loop := harness.New(invoker, harness.Options{MaxReinvoke: &max, Logger: quietLogger()})

	req, err := harness.NewRequest(models.ActionUpdate, []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	report := loop.Run(context.Background(), req)
	if report.State != models.RunStateDoneExhausted {
		t.Fatalf("state = %v, want done_exhausted", report.State)
	}
	if report.Invocations != 3 {
		t.Errorf("invocations = %d, want 3 (initial + 2 reinvocations)", report.Invocations)
	}
}

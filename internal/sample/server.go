package sample

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/provoke-dev/provoke/pkg/auth"
	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/metrics"
	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/ratelimit"
	"github.com/provoke-dev/provoke/pkg/store"
	"github.com/provoke-dev/provoke/pkg/tracing"
)

// ServerOptions configures the fixture endpoint
type ServerOptions struct {
	Scenario    *Scenario
	ThrottleRPS float64            // over-limit requests answered FAILED/Throttling; 0 disables
	AuthToken   string             // shared secret for the invocation routes; empty disables
	Store       store.Store        // run ledger surfaced on /metrics; may be nil
	Collector   *metrics.Collector // may be nil
	Gatherer    prometheus.Gatherer
	Tracing     *tracing.Provider // may be nil
	Logger      *logging.Logger
}

// Server answers handler invocations from a scripted scenario
type Server struct {
	engine    *Engine
	guard     *auth.Guard
	limiter   *ratelimit.Limiter
	collector *metrics.Collector
	exporter  *metrics.Exporter
	tracing   *tracing.Provider
	logger    *logging.Logger
	startTime time.Time
}

// NewServer creates the fixture server
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}

	guard, err := auth.NewGuard(opts.AuthToken)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if opts.ThrottleRPS > 0 {
		burst := int(opts.ThrottleRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = ratelimit.NewLimiter(opts.ThrottleRPS, burst)
	}

	return &Server{
		engine:    NewEngine(opts.Scenario, logger),
		guard:     guard,
		limiter:   limiter,
		collector: opts.Collector,
		exporter:  metrics.NewExporter(opts.Store, opts.Gatherer),
		tracing:   opts.Tracing,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Handler builds the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)

	var h http.Handler = r
	if s.collector != nil {
		h = s.collector.Middleware(h)
	}
	if s.tracing != nil {
		h = tracing.HTTPMiddleware(s.tracing)(h)
	}
	return h
}

// RegisterRoutes registers all endpoint routes. The auth guard covers
// the invocation routes only; health and metrics stay open.
func (s *Server) RegisterRoutes(r *mux.Router) {
	invoke := s.guard.Middleware(http.HandlerFunc(s.HandleInvocation))

	r.Handle("/2015-03-31/functions/{function}/invocations", invoke).Methods("POST")
	r.Handle("/invoke", invoke).Methods("POST")
	r.HandleFunc("/health", s.Health).Methods("GET")
	r.Handle("/metrics", s.exporter).Methods("GET")
}

// HandleInvocation answers one handler invocation
func (s *Server) HandleInvocation(w http.ResponseWriter, r *http.Request) {
	function := mux.Vars(r)["function"]
	if function == "" {
		function = "default"
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.InvocationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	var respBody []byte
	var status string

	// Throttled requests get a legal FAILED/Throttling response on the
	// wire, not an HTTP error: callers must treat it as a handler
	// outcome, and retrying is their decision.
	if s.limiter != nil && !s.limiter.Allow(req.BearerToken) {
		respBody = marshalEvent(&models.ProgressEvent{
			Status:    models.StatusFailed,
			ErrorCode: "Throttling",
			Message:   "request rate exceeded for this bearer token",
		})
		status = string(models.StatusFailed)
	} else {
		respBody, status = s.engine.Step(req)
	}

	if s.collector != nil {
		s.collector.RecordInvocation(function, string(req.Action), status, time.Since(start).Seconds())
	}

	s.logger.Info("Invocation answered", map[string]interface{}{
		"function":     function,
		"action":       string(req.Action),
		"status":       status,
		"bearer_token": req.BearerToken,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(respBody)
}

// Health reports endpoint liveness
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "healthy",
		"service":        "provoke-sample",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

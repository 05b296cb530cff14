package models

import "time"

// RunRecord is the ledger entry for one completed (or failed) run.
// The ID is the run's bearer token, so ledger rows correlate directly
// with handler-side logs.
type RunRecord struct {
	ID          string             `json:"id"`
	Action      Action             `json:"action"`
	Endpoint    string             `json:"endpoint"`
	Function    string             `json:"function"`
	Transport   string             `json:"transport"`
	State       RunState           `json:"state"`
	Invocations int                `json:"invocations"`
	Message     string             `json:"message,omitempty"`
	ErrorCode   string             `json:"error_code,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Transitions []StateTransition  `json:"transitions,omitempty"`
	Timings     []InvocationTiming `json:"timings,omitempty"`
}

// Duration returns the wall-clock time the run took.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// InvocationTiming records the observable shape of one invocation:
// what came back, how long the exchange took, and the delay the
// handler asked for before the next one.
type InvocationTiming struct {
	Attempt      int    `json:"attempt"` // 1-based invocation number within the run
	Status       string `json:"status"`  // reported status, or "error"
	DelaySeconds int    `json:"delay_seconds,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

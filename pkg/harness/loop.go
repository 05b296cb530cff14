// Package harness drives one logical lifecycle operation to completion by
// repeatedly invoking a resource handler, carrying callback context forward
// between invocations and enforcing the caller's re-invocation budget.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/provoke-dev/provoke/pkg/handler"
	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/models"
)

// Options tune a single run of the loop.
type Options struct {
	// MaxReinvoke caps how many IN_PROGRESS re-invocations may follow the
	// first invocation. nil means unbounded.
	MaxReinvoke *int
	// Clock defaults to the wall clock.
	Clock Clock
	// Logger defaults to an ERROR-level stderr logger.
	Logger *logging.Logger
}

// Loop drives one logical operation against a handler endpoint. A run is
// strictly sequential: one invocation in flight at a time, each
// re-invocation carrying the callback context returned by the previous
// response. Runs share no state, so one Loop may serve many runs, but a
// single run is never concurrent with itself.
type Loop struct {
	invoker handler.Invoker
	max     *int
	clock   Clock
	logger  *logging.Logger
}

// New creates a loop around the given invoker.
func New(invoker handler.Invoker, opts Options) *Loop {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.ERROR, false)
	}

	return &Loop{
		invoker: invoker,
		max:     opts.MaxReinvoke,
		clock:   clock,
		logger:  logger,
	}
}

// Report is the definitive record of one completed run.
type Report struct {
	State       models.RunState
	Invocations int                   // invocations actually issued
	LastEvent   *models.ProgressEvent // last parsed response, nil if none arrived
	Err         error                 // set when State is RunStateDoneError
	Warnings    []string              // observable contract violations
	Transitions []models.StateTransition
	Timings     []models.InvocationTiming
	BearerToken string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// run is the mutable state of one driving loop, owned exclusively by Run.
type run struct {
	state       models.RunState
	issued      int
	lastEvent   *models.ProgressEvent
	err         error
	warnings    []string
	transitions []models.StateTransition
	timings     []models.InvocationTiming
}

// Run drives the operation until a terminal state is reached. Every error
// kind folds into the report: one run produces exactly one outcome.
func (l *Loop) Run(ctx context.Context, first models.InvocationRequest) Report {
	startedAt := l.clock.Now()
	r := &run{state: models.RunStatePending}
	req := first

	logger := l.logger.WithField("bearer_token", first.BearerToken)
	logger.Info("Starting run", map[string]interface{}{"action": string(first.Action)})

	for {
		// The budget is checked only before issuing, never mid-flight: a
		// response for an already-spent budget is still fully processed,
		// only the next invocation is suppressed.
		next := r.issued + 1
		if next > 1 && l.max != nil && (next-1) > *l.max {
			l.transition(r, models.RunStateDoneExhausted,
				fmt.Sprintf("reinvocation budget of %d spent", *l.max))
			break
		}

		if err := ctx.Err(); err != nil {
			l.fail(r, logger, fmt.Errorf("run cancelled: %w", err), "cancelled")
			break
		}

		l.transition(r, models.RunStateRunning, fmt.Sprintf("issuing invocation %d", next))
		r.issued = next

		attemptStart := l.clock.Now()
		payload, err := l.invoker.Invoke(ctx, req)
		elapsed := l.clock.Now().Sub(attemptStart)

		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("run cancelled: %w", ctx.Err())
			}
			r.timings = append(r.timings, models.InvocationTiming{
				Attempt:    next,
				Status:     "error",
				DurationMs: elapsed.Milliseconds(),
			})
			l.fail(r, logger, err, "invocation failed")
			break
		}

		event, err := models.ParseProgressEvent(payload)
		if err != nil {
			r.timings = append(r.timings, models.InvocationTiming{
				Attempt:    next,
				Status:     "error",
				DurationMs: elapsed.Milliseconds(),
			})
			l.fail(r, logger, err, "response rejected")
			break
		}

		r.lastEvent = event
		timing := models.InvocationTiming{
			Attempt:    next,
			Status:     string(event.Status),
			DurationMs: elapsed.Milliseconds(),
		}
		if event.CallbackDelaySeconds != nil {
			timing.DelaySeconds = *event.CallbackDelaySeconds
		}
		r.timings = append(r.timings, timing)

		for _, warning := range event.ContractWarnings() {
			logger.Warn(warning, map[string]interface{}{"invocation": next})
			r.warnings = append(r.warnings, warning)
		}

		logger.Info("Invocation finished", map[string]interface{}{
			"invocation": next,
			"status":     string(event.Status),
		})

		switch event.Status {
		case models.StatusSuccess:
			l.transition(r, models.RunStateDoneSuccess, "handler reported SUCCESS")
		case models.StatusFailed:
			l.transition(r, models.RunStateDoneFailed,
				fmt.Sprintf("handler reported FAILED (%s)", event.ErrorCode))
		case models.StatusInProgress:
			l.transition(r, models.RunStateContinuing, "handler reported IN_PROGRESS")
			req = req.Next(event.CallbackContext)
			if err := l.wait(ctx, event.Delay()); err != nil {
				l.fail(r, logger, fmt.Errorf("run cancelled: %w", err), "cancelled")
			}
		}

		if models.IsTerminalRunState(r.state) {
			break
		}
	}

	logger.Info("Run finished", map[string]interface{}{
		"state":       string(r.state),
		"invocations": r.issued,
	})

	return Report{
		State:       r.state,
		Invocations: r.issued,
		LastEvent:   r.lastEvent,
		Err:         r.err,
		Warnings:    r.warnings,
		Transitions: r.transitions,
		Timings:     r.timings,
		BearerToken: first.BearerToken,
		StartedAt:   startedAt,
		FinishedAt:  l.clock.Now(),
	}
}

// wait blocks for the callback delay or until cancellation. A zero delay
// returns immediately with no wait at all.
func (l *Loop) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.clock.After(d):
		return nil
	}
}

// transition validates and records a state change. The table is fixed, so a
// rejection is a programming error; it is surfaced on the report rather
// than swallowed.
func (l *Loop) transition(r *run, to models.RunState, reason string) {
	if err := models.ValidateRunTransition(r.state, to); err != nil {
		r.err = err
		to = models.RunStateDoneError
		reason = "invalid transition"
	}

	r.transitions = append(r.transitions, models.StateTransition{
		From:      r.state,
		To:        to,
		Timestamp: l.clock.Now(),
		Reason:    reason,
	})

	l.logger.Debug("State transition", map[string]interface{}{
		"from":   string(r.state),
		"to":     string(to),
		"reason": reason,
	})

	r.state = to
}

// fail records err and moves the run to DONE_ERROR.
func (l *Loop) fail(r *run, logger *logging.Logger, err error, reason string) {
	r.err = err
	logger.Error("Run failed", map[string]interface{}{"error": err.Error()})
	l.transition(r, models.RunStateDoneError, reason)
}

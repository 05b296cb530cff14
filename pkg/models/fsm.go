package models

import (
	"fmt"
	"time"
)

// Run states for the reinvocation state machine
const (
	RunStatePending       RunState = "pending"        // before the first invocation is issued
	RunStateRunning       RunState = "running"        // an invocation is in flight
	RunStateContinuing    RunState = "continuing"     // non-terminal response received, next invocation being prepared
	RunStateDoneSuccess   RunState = "done_success"   // handler reported SUCCESS
	RunStateDoneFailed    RunState = "done_failed"    // handler reported FAILED
	RunStateDoneExhausted RunState = "done_exhausted" // re-invocation budget spent before a terminal status
	RunStateDoneError     RunState = "done_error"     // transport/validation failure or cancellation
)

// RunState is the state of one reinvocation run.
type RunState string

// validRunTransitions maps from-state to allowed to-states
var validRunTransitions = map[RunState]map[RunState]bool{
	RunStatePending: {
		RunStateRunning:   true, // Pending → Running (first invocation issued)
		RunStateDoneError: true, // Pending → DoneError (cancelled before the first invocation)
	},
	RunStateRunning: {
		RunStateContinuing:  true, // Running → Continuing (IN_PROGRESS response)
		RunStateDoneSuccess: true, // Running → DoneSuccess (SUCCESS response)
		RunStateDoneFailed:  true, // Running → DoneFailed (FAILED response)
		RunStateDoneError:   true, // Running → DoneError (transport or validation failure)
	},
	RunStateContinuing: {
		RunStateRunning:       true, // Continuing → Running (next invocation issued)
		RunStateDoneExhausted: true, // Continuing → DoneExhausted (budget spent, invocation suppressed)
		RunStateDoneError:     true, // Continuing → DoneError (cancelled during the callback delay)
	},
	// Terminal states (no transitions allowed)
	RunStateDoneSuccess:   {},
	RunStateDoneFailed:    {},
	RunStateDoneExhausted: {},
	RunStateDoneError:     {},
}

// ValidateRunTransition checks if a run state transition is valid
func ValidateRunTransition(from, to RunState) error {
	allowed, exists := validRunTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminalRunState returns true if the state ends a run (no further transitions)
func IsTerminalRunState(state RunState) bool {
	return state == RunStateDoneSuccess ||
		state == RunStateDoneFailed ||
		state == RunStateDoneExhausted ||
		state == RunStateDoneError
}

// StateTransition records one validated state change of a run.
type StateTransition struct {
	From      RunState  `json:"from"`
	To        RunState  `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

package harness

import (
	"fmt"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Exit codes distinguish outcomes for automated callers. 1 is left to the
// CLI for usage and configuration errors.
const (
	ExitSuccess   = 0
	ExitFailed    = 2
	ExitExhausted = 3
	ExitError     = 4
)

// ExitOutcome is the process-level result of one run.
type ExitOutcome struct {
	Code          int                   `json:"exit_code"`
	State         models.RunState       `json:"state"`
	Message       string                `json:"message,omitempty"`
	ErrorCode     string                `json:"error_code,omitempty"`
	ResourceModel any                   `json:"resource_model,omitempty"`
	LastEvent     *models.ProgressEvent `json:"last_event,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
	Invocations   int                   `json:"invocations"`
}

// Record converts a finished report into its ledger row. The row keeps
// the run's identity (endpoint, function, transport) alongside the
// outcome so past runs can be inspected without the original command
// line.
func Record(report Report, action models.Action, endpoint, function, transport string) *models.RunRecord {
	out := Outcome(report)
	return &models.RunRecord{
		ID:          report.BearerToken,
		Action:      action,
		Endpoint:    endpoint,
		Function:    function,
		Transport:   transport,
		State:       report.State,
		Invocations: report.Invocations,
		Message:     out.Message,
		ErrorCode:   out.ErrorCode,
		Warnings:    report.Warnings,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Transitions: report.Transitions,
		Timings:     report.Timings,
	}
}

// Outcome maps a finished run onto its process-level outcome. Handler
// failures keep the handler's own errorCode and message verbatim; budget
// exhaustion carries the last observed non-terminal event so callers can
// tell "never finished" from "explicitly rejected".
func Outcome(report Report) ExitOutcome {
	out := ExitOutcome{
		State:       report.State,
		LastEvent:   report.LastEvent,
		Warnings:    report.Warnings,
		Invocations: report.Invocations,
	}

	switch report.State {
	case models.RunStateDoneSuccess:
		out.Code = ExitSuccess
		if report.LastEvent != nil {
			out.Message = report.LastEvent.Message
			out.ResourceModel = report.LastEvent.ResourceModel
		}
	case models.RunStateDoneFailed:
		out.Code = ExitFailed
		if report.LastEvent != nil {
			out.Message = report.LastEvent.Message
			out.ErrorCode = report.LastEvent.ErrorCode
		}
	case models.RunStateDoneExhausted:
		out.Code = ExitExhausted
		out.Message = fmt.Sprintf("handler still in progress after %d invocations", report.Invocations)
	case models.RunStateDoneError:
		out.Code = ExitError
		if report.Err != nil {
			out.Message = report.Err.Error()
		}
	}

	return out
}

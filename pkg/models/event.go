package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationStatus is the status a handler reports for one invocation.
type OperationStatus string

const (
	StatusSuccess    OperationStatus = "SUCCESS"
	StatusFailed     OperationStatus = "FAILED"
	StatusInProgress OperationStatus = "IN_PROGRESS"
)

// Terminal reports whether the status ends a run.
func (s OperationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ProgressEvent is the parsed response envelope from one invocation.
type ProgressEvent struct {
	Status               OperationStatus `json:"status"`
	Message              string          `json:"message,omitempty"`
	ErrorCode            string          `json:"errorCode,omitempty"`
	CallbackContext      map[string]any  `json:"callbackContext,omitempty"`
	CallbackDelaySeconds *int            `json:"callbackDelaySeconds,omitempty"`
	ResourceModel        any             `json:"resourceModel,omitempty"`
}

// ParseProgressEvent parses and validates a raw handler response.
// A body that is not a JSON object is a protocol-level failure; a body
// that parses but violates the envelope rules is a ValidationError
// carrying the offending response. Contract oddities on SUCCESS
// (stray errorCode or callbackContext) do not fail parsing; they are
// surfaced via ContractWarnings.
func ParseProgressEvent(raw []byte) (*ProgressEvent, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &TransportError{
			Kind:   TransportProtocol,
			Detail: fmt.Sprintf("response is not a JSON object: %s", Snippet(raw)),
			Err:    err,
		}
	}
	if envelope == nil {
		return nil, &TransportError{
			Kind:   TransportProtocol,
			Detail: "response is empty",
		}
	}

	var event ProgressEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, &TransportError{
			Kind:   TransportProtocol,
			Detail: fmt.Sprintf("response does not match the envelope shape: %s", Snippet(raw)),
			Err:    err,
		}
	}

	switch event.Status {
	case StatusSuccess, StatusFailed, StatusInProgress:
	default:
		return nil, &ValidationError{
			Reason: ValidationUnknownStatus,
			Detail: fmt.Sprintf("status %q is not one of SUCCESS, FAILED, IN_PROGRESS", event.Status),
			Raw:    Snippet(raw),
		}
	}

	if event.Status == StatusFailed && event.ErrorCode == "" {
		return nil, &ValidationError{
			Reason: ValidationMissingErrorCode,
			Detail: "FAILED response must carry an errorCode",
			Raw:    Snippet(raw),
		}
	}

	if event.CallbackDelaySeconds != nil && *event.CallbackDelaySeconds < 0 {
		return nil, &ValidationError{
			Reason: ValidationInvalidDelay,
			Detail: fmt.Sprintf("callbackDelaySeconds must be non-negative, got %d", *event.CallbackDelaySeconds),
			Raw:    Snippet(raw),
		}
	}

	return &event, nil
}

// Delay returns the minimum wait before the next invocation.
// Zero means re-invoke immediately.
func (e *ProgressEvent) Delay() time.Duration {
	if e.CallbackDelaySeconds == nil {
		return 0
	}
	return time.Duration(*e.CallbackDelaySeconds) * time.Second
}

// ContractWarnings lists fields a SUCCESS response carried that the
// contract says it must not. The run still succeeds; the warnings are
// part of the observable outcome so a handler author can fix the drift.
func (e *ProgressEvent) ContractWarnings() []string {
	if e.Status != StatusSuccess {
		return nil
	}
	var warnings []string
	if e.ErrorCode != "" {
		warnings = append(warnings, fmt.Sprintf("SUCCESS response carries errorCode %q", e.ErrorCode))
	}
	if len(e.CallbackContext) > 0 {
		warnings = append(warnings, "SUCCESS response carries a non-empty callbackContext")
	}
	return warnings
}

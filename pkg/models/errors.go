package models

import (
	"errors"
	"fmt"
)

// TransportErrorKind categorizes how an invocation exchange failed.
type TransportErrorKind string

const (
	TransportConnection TransportErrorKind = "connection" // endpoint unreachable
	TransportTimeout    TransportErrorKind = "timeout"    // no response within deadline
	TransportProtocol   TransportErrorKind = "protocol"   // exchange completed but response is not a handler envelope
)

// TransportError wraps a failed exchange with the handler endpoint.
// Transport failures are terminal for a run; nothing in the harness
// retries them.
type TransportError struct {
	Kind     TransportErrorKind
	Endpoint string
	Detail   string
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s error invoking %s", e.Kind, e.Endpoint)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationReason identifies which envelope rule a handler response violated.
type ValidationReason string

const (
	ValidationUnknownStatus    ValidationReason = "unknown_status"
	ValidationMissingErrorCode ValidationReason = "missing_error_code"
	ValidationInvalidDelay     ValidationReason = "invalid_delay"
)

// ValidationError reports a handler response that parsed as JSON but
// violates the envelope contract. Raw carries a snippet of the offending
// response for debugging.
type ValidationError struct {
	Reason ValidationReason
	Detail string
	Raw    []byte
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid handler response (%s): %s", e.Reason, e.Detail)
	if len(e.Raw) > 0 {
		msg += fmt.Sprintf(": got %s", e.Raw)
	}
	return msg
}

// InvalidActionError reports an unrecognized lifecycle action. Detected
// before the loop starts; no invocation is issued.
type InvalidActionError struct {
	Input string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q: must be one of CREATE, READ, UPDATE, DELETE, LIST", e.Input)
}

// MalformedRequestError reports a resource request body that does not
// deserialize to a JSON mapping.
type MalformedRequestError struct {
	Err error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed resource request: %v", e.Err)
	}
	return "malformed resource request: body must be a JSON object"
}

func (e *MalformedRequestError) Unwrap() error {
	return e.Err
}

// AsTransportError unwraps err to a TransportError if one is in the chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// AsValidationError unwraps err to a ValidationError if one is in the chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Snippet truncates a raw response for inclusion in error messages and logs.
func Snippet(raw []byte) []byte {
	const max = 512
	if len(raw) <= max {
		return raw
	}
	out := make([]byte, max, max+3)
	copy(out, raw[:max])
	return append(out, "..."...)
}

package models

import (
	"testing"
	"time"
)

func TestParseProgressEvent(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStatus OperationStatus
		wantReason ValidationReason
		wantProto  bool
	}{
		{
			name:       "SUCCESS with resource model",
			raw:        `{"status":"SUCCESS","resourceModel":{"name":"web"}}`,
			wantStatus: StatusSuccess,
		},
		{
			name:       "FAILED with error code",
			raw:        `{"status":"FAILED","errorCode":"NotFound","message":"no such resource"}`,
			wantStatus: StatusFailed,
		},
		{
			name:       "IN_PROGRESS with callback context and delay",
			raw:        `{"status":"IN_PROGRESS","callbackContext":{"step":1},"callbackDelaySeconds":30}`,
			wantStatus: StatusInProgress,
		},
		{
			name:       "IN_PROGRESS with zero delay",
			raw:        `{"status":"IN_PROGRESS","callbackDelaySeconds":0}`,
			wantStatus: StatusInProgress,
		},
		{
			name:       "IN_PROGRESS without delay",
			raw:        `{"status":"IN_PROGRESS"}`,
			wantStatus: StatusInProgress,
		},
		{
			name:       "unknown status",
			raw:        `{"status":"PENDING"}`,
			wantReason: ValidationUnknownStatus,
		},
		{
			name:       "lowercase status",
			raw:        `{"status":"success"}`,
			wantReason: ValidationUnknownStatus,
		},
		{
			name:       "missing status",
			raw:        `{"message":"hello"}`,
			wantReason: ValidationUnknownStatus,
		},
		{
			name:       "FAILED without error code",
			raw:        `{"status":"FAILED","message":"boom"}`,
			wantReason: ValidationMissingErrorCode,
		},
		{
			name:       "negative delay",
			raw:        `{"status":"IN_PROGRESS","callbackDelaySeconds":-5}`,
			wantReason: ValidationInvalidDelay,
		},
		{
			name:      "JSON array body",
			raw:       `[1,2,3]`,
			wantProto: true,
		},
		{
			name:      "JSON string body",
			raw:       `"SUCCESS"`,
			wantProto: true,
		},
		{
			name:      "JSON null body",
			raw:       `null`,
			wantProto: true,
		},
		{
			name:      "non-JSON body",
			raw:       `<html>oops</html>`,
			wantProto: true,
		},
		{
			name:      "empty body",
			raw:       ``,
			wantProto: true,
		},
		{
			name:      "wrong field type",
			raw:       `{"status":"IN_PROGRESS","callbackDelaySeconds":"soon"}`,
			wantProto: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseProgressEvent([]byte(tt.raw))

			if tt.wantProto {
				terr, ok := AsTransportError(err)
				if !ok {
					t.Fatalf("ParseProgressEvent(%q) error = %v, want transport error", tt.raw, err)
				}
				if terr.Kind != TransportProtocol {
					t.Errorf("ParseProgressEvent(%q) transport kind = %v, want %v", tt.raw, terr.Kind, TransportProtocol)
				}
				return
			}

			if tt.wantReason != "" {
				verr, ok := AsValidationError(err)
				if !ok {
					t.Fatalf("ParseProgressEvent(%q) error = %v, want validation error", tt.raw, err)
				}
				if verr.Reason != tt.wantReason {
					t.Errorf("ParseProgressEvent(%q) reason = %v, want %v", tt.raw, verr.Reason, tt.wantReason)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseProgressEvent(%q) unexpected error: %v", tt.raw, err)
			}
			if event.Status != tt.wantStatus {
				t.Errorf("ParseProgressEvent(%q) status = %v, want %v", tt.raw, event.Status, tt.wantStatus)
			}
		})
	}
}

func TestProgressEventDelay(t *testing.T) {
	delay := func(seconds int) *int { return &seconds }

	tests := []struct {
		name     string
		event    ProgressEvent
		expected time.Duration
	}{
		{"no delay field", ProgressEvent{Status: StatusInProgress}, 0},
		{"explicit zero", ProgressEvent{Status: StatusInProgress, CallbackDelaySeconds: delay(0)}, 0},
		{"thirty seconds", ProgressEvent{Status: StatusInProgress, CallbackDelaySeconds: delay(30)}, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Delay(); got != tt.expected {
				t.Errorf("Delay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestProgressEventContractWarnings(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		count int
	}{
		{
			name:  "clean SUCCESS",
			event: ProgressEvent{Status: StatusSuccess},
			count: 0,
		},
		{
			name:  "SUCCESS with error code",
			event: ProgressEvent{Status: StatusSuccess, ErrorCode: "Throttling"},
			count: 1,
		},
		{
			name:  "SUCCESS with callback context",
			event: ProgressEvent{Status: StatusSuccess, CallbackContext: map[string]any{"step": 3}},
			count: 1,
		},
		{
			name:  "SUCCESS with both",
			event: ProgressEvent{Status: StatusSuccess, ErrorCode: "Throttling", CallbackContext: map[string]any{"step": 3}},
			count: 2,
		},
		{
			name:  "FAILED with callback context",
			event: ProgressEvent{Status: StatusFailed, ErrorCode: "NotFound", CallbackContext: map[string]any{"step": 3}},
			count: 0,
		},
		{
			name:  "IN_PROGRESS with callback context",
			event: ProgressEvent{Status: StatusInProgress, CallbackContext: map[string]any{"step": 3}},
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.event.ContractWarnings()
			if len(warnings) != tt.count {
				t.Errorf("ContractWarnings() = %v, want %d warnings", warnings, tt.count)
			}
		})
	}
}

func TestOperationStatusTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   OperationStatus
		expected bool
	}{
		{"SUCCESS is terminal", StatusSuccess, true},
		{"FAILED is terminal", StatusFailed, true},
		{"IN_PROGRESS is not terminal", StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.expected {
				t.Errorf("Terminal() = %v, want %v for %v", got, tt.expected, tt.status)
			}
		})
	}
}

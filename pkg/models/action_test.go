package models

import (
	"errors"
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{"uppercase create", "CREATE", ActionCreate, false},
		{"lowercase delete", "delete", ActionDelete, false},
		{"mixed case read", "Read", ActionRead, false},
		{"padded update", "  UPDATE  ", ActionUpdate, false},
		{"list", "LIST", ActionList, false},
		{"unknown verb", "DESTROY", "", true},
		{"empty input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAction(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseActionErrorNamesInput(t *testing.T) {
	_, err := ParseAction("destroy")
	if err == nil {
		t.Fatal("ParseAction(destroy) expected error, got nil")
	}
	var invalidErr *InvalidActionError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("ParseAction(destroy) error = %T, want *InvalidActionError", err)
	}
	if invalidErr.Input != "destroy" {
		t.Errorf("InvalidActionError.Input = %q, want %q", invalidErr.Input, "destroy")
	}
}

func TestActionValid(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		expected bool
	}{
		{"create", ActionCreate, true},
		{"read", ActionRead, true},
		{"update", ActionUpdate, true},
		{"delete", ActionDelete, true},
		{"list", ActionList, true},
		{"lowercase is not valid", Action("create"), false},
		{"empty is not valid", Action(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Valid(); got != tt.expected {
				t.Errorf("Valid() = %v, want %v for %v", got, tt.expected, tt.action)
			}
		})
	}
}

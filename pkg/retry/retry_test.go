package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/retry"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("connection refused")
	err := retry.Do(context.Background(), fastConfig(3), func() error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("Do() error = nil, want exhaustion error")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Do() error = %v, want wrapped %v", err, cause)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := retry.Config{
		MaxAttempts:    10,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}
	err := retry.Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("not ready")
	})
	if err == nil {
		t.Fatal("Do() error = nil, want cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"connection fault", &models.TransportError{Kind: models.TransportConnection, Endpoint: "http://127.0.0.1:3001", Err: errors.New("refused")}, true},
		{"timeout fault", &models.TransportError{Kind: models.TransportTimeout, Endpoint: "http://127.0.0.1:3001", Err: errors.New("deadline")}, true},
		{"protocol fault", &models.TransportError{Kind: models.TransportProtocol, Endpoint: "http://127.0.0.1:3001", Err: errors.New("status 500")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.Transient(tt.err); got != tt.expected {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

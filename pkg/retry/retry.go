// Package retry implements bounded exponential backoff for endpoint
// probes. The invocation loop itself never retries; this is only for
// waiting out an emulator that is still starting up.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Config holds probe retry configuration
type Config struct {
	MaxAttempts    int           // Total attempts, including the first
	InitialBackoff time.Duration // Backoff after the first failed attempt
	MaxBackoff     time.Duration // Backoff ceiling
	Multiplier     float64       // Exponential growth factor
}

// DefaultConfig returns sensible defaults for waiting on a local emulator
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
}

// Do executes fn with exponential backoff until it succeeds, attempts run
// out, or ctx is cancelled.
func Do(ctx context.Context, config Config, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("probe cancelled: %w", ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("probe cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return fmt.Errorf("endpoint not ready after %d attempts: %w", config.MaxAttempts, lastErr)
}

// Transient reports whether an error is worth probing again. Connection
// and timeout faults are transient while an emulator boots; protocol
// faults mean the endpoint answered and will not improve on its own.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	terr, ok := models.AsTransportError(err)
	if !ok {
		return false
	}
	return terr.Kind == models.TransportConnection || terr.Kind == models.TransportTimeout
}

package shutdown_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/shutdown"
)

func quietLogger() *logging.Logger {
	logger := logging.NewLogger(logging.ERROR, false)
	logger.SetOutput(io.Discard)
	return logger
}

func TestShutdownRunsHandlersLIFO(t *testing.T) {
	m := shutdown.NewManager(time.Second, quietLogger())

	var order []string
	m.Register("store", func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	m.Register("server", func(ctx context.Context) error {
		order = append(order, "server")
		return nil
	})

	m.Shutdown()

	if len(order) != 2 || order[0] != "server" || order[1] != "store" {
		t.Errorf("handler order = %v, want [server store]", order)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	m := shutdown.NewManager(time.Second, quietLogger())

	calls := 0
	m.Register("once", func(ctx context.Context) error {
		calls++
		return nil
	})

	m.Shutdown()
	m.Shutdown()

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}

	select {
	case <-m.Done():
	default:
		t.Error("Done() channel not closed after Shutdown()")
	}
}

func TestShutdownContinuesPastFailingHandler(t *testing.T) {
	m := shutdown.NewManager(time.Second, quietLogger())

	ran := false
	m.Register("first", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.Register("failing", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	m.Shutdown()

	if !ran {
		t.Error("handler after failing one did not run")
	}
}

func TestWaitWithContextCancellation(t *testing.T) {
	m := shutdown.NewManager(time.Second, quietLogger())

	done := false
	m.Register("cleanup", func(ctx context.Context) error {
		done = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	m.WaitWithContext(ctx)

	if !done {
		t.Error("cleanup handler did not run on context cancellation")
	}
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestCloseResource(t *testing.T) {
	rec := &closeRecorder{}
	fn := shutdown.CloseResource("store", rec)

	if err := fn(context.Background()); err != nil {
		t.Fatalf("CloseResource handler error = %v, want nil", err)
	}
	if !rec.closed {
		t.Error("resource not closed")
	}

	failing := &closeRecorder{err: errors.New("busy")}
	fn = shutdown.CloseResource("store", failing)
	if err := fn(context.Background()); err == nil {
		t.Error("CloseResource handler error = nil, want wrapped close error")
	}
}

// Package shutdown coordinates graceful teardown of long-running
// components such as the sample handler server.
package shutdown

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/provoke-dev/provoke/pkg/logging"
)

// Handler is a named cleanup function invoked during shutdown
type Handler struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Manager coordinates graceful shutdown across components
type Manager struct {
	mu       sync.Mutex
	handlers []Handler
	timeout  time.Duration
	logger   *logging.Logger
	done     chan struct{}
	once     sync.Once
}

// NewManager creates a shutdown manager with the given grace period
func NewManager(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Register adds a cleanup handler. Handlers run in reverse registration
// order, so register dependencies before their dependents.
func (m *Manager) Register(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Fn: fn})
}

// Wait blocks until SIGINT or SIGTERM arrives, then runs shutdown
func (m *Manager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	m.logger.Info("Received shutdown signal", map[string]interface{}{
		"signal": sig.String(),
	})

	m.Shutdown()
}

// WaitWithContext blocks until a signal arrives or ctx is cancelled
func (m *Manager) WaitWithContext(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})
	case <-ctx.Done():
		m.logger.Info("Context cancelled, shutting down", nil)
	}

	m.Shutdown()
}

// Shutdown runs all registered handlers in LIFO order. Safe to call
// multiple times; only the first call does any work.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.mu.Lock()
		handlers := make([]Handler, len(m.handlers))
		copy(handlers, m.handlers)
		m.mu.Unlock()

		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			m.logger.Debug("Stopping component", map[string]interface{}{
				"component": h.Name,
			})
			if err := h.Fn(ctx); err != nil {
				m.logger.Error("Component shutdown failed", map[string]interface{}{
					"component": h.Name,
					"error":     err.Error(),
				})
			}
		}

		close(m.done)
	})
}

// Done returns a channel closed once shutdown completes
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// StopHTTPServer returns a handler that gracefully stops an HTTP server
func StopHTTPServer(srv *http.Server) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}

// CloseResource returns a handler that closes an io.Closer
func CloseResource(name string, closer io.Closer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		return nil
	}
}

// Package handlertest provides a scripted Invoker for exercising the
// invocation loop without a live endpoint.
package handlertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Step is one scripted reply: a raw payload, or an error returned in its
// place.
type Step struct {
	Response []byte
	Err      error
}

// Respond builds a step that returns the given payload.
func Respond(raw string) Step {
	return Step{Response: []byte(raw)}
}

// Fail builds a step that returns the given error instead of a payload.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedInvoker replays a fixed sequence of steps and records every
// request it receives. Invoking past the end of the script is an error so
// tests catch loops that run longer than expected.
type ScriptedInvoker struct {
	mu       sync.Mutex
	steps    []Step
	requests []models.InvocationRequest
}

// NewScriptedInvoker creates an invoker that replays steps in order.
func NewScriptedInvoker(steps ...Step) *ScriptedInvoker {
	return &ScriptedInvoker{steps: steps}
}

// Invoke records the request and replays the next scripted step.
func (s *ScriptedInvoker) Invoke(ctx context.Context, req models.InvocationRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.steps) {
		return nil, fmt.Errorf("no scripted response for invocation %d", len(s.requests))
	}

	step := s.steps[len(s.requests)-1]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Requests returns a copy of every request received so far, in order.
func (s *ScriptedInvoker) Requests() []models.InvocationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.InvocationRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Invocations returns how many times Invoke was called.
func (s *ScriptedInvoker) Invocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Package sample implements a local fixture endpoint speaking the
// handler wire contract, so the harness can be developed and
// smoke-tested without a real resource provider behind it.
package sample

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Failure-injection modes. Each one exercises a different rejection
// path in the invoker, applied in place of the script's terminal
// response (negative-delay applies to the first in-progress response).
const (
	ModeMalformed          = "malformed"            // non-JSON body
	ModeUnknownStatus      = "unknown-status"       // status outside the contract
	ModeMissingErrorCode   = "missing-error-code"   // FAILED without errorCode
	ModeNegativeDelay      = "negative-delay"       // IN_PROGRESS with a negative delay
	ModeSuccessWithContext = "success-with-context" // SUCCESS carrying callbackContext
)

// Scenario scripts the endpoint's behavior per action
type Scenario struct {
	// Actions maps CREATE/READ/UPDATE/DELETE/LIST to a script.
	// Actions without an entry fall back to Default.
	Actions map[string]*ActionScript `yaml:"actions"`
	Default *ActionScript            `yaml:"default,omitempty"`
}

// ActionScript describes how the endpoint answers one action
type ActionScript struct {
	Steps        int    `yaml:"steps"`                  // IN_PROGRESS responses before the terminal one
	DelaySeconds int    `yaml:"delaySeconds,omitempty"` // callbackDelaySeconds on each IN_PROGRESS response
	Result       string `yaml:"result,omitempty"`       // SUCCESS (default) or FAILED
	ErrorCode    string `yaml:"errorCode,omitempty"`    // required when result is FAILED
	Message      string `yaml:"message,omitempty"`
	Mode         string `yaml:"mode,omitempty"` // failure-injection mode, empty for contract-clean behavior
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// DefaultScenario answers every action with two IN_PROGRESS steps and
// an immediate SUCCESS, the shortest script that still exercises
// callback-context round-tripping.
func DefaultScenario() *Scenario {
	return &Scenario{
		Default: &ActionScript{
			Steps:  2,
			Result: string(models.StatusSuccess),
		},
	}
}

// Validate checks the scenario for contradictions before serving it
func (s *Scenario) Validate() error {
	if len(s.Actions) == 0 && s.Default == nil {
		return fmt.Errorf("scenario defines no actions and no default")
	}

	for name, script := range s.Actions {
		if _, err := models.ParseAction(name); err != nil {
			return fmt.Errorf("unknown action %q", name)
		}
		if err := script.validate(); err != nil {
			return fmt.Errorf("action %s: %w", name, err)
		}
	}
	if s.Default != nil {
		if err := s.Default.validate(); err != nil {
			return fmt.Errorf("default: %w", err)
		}
	}
	return nil
}

func (a *ActionScript) validate() error {
	if a.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", a.Steps)
	}
	if a.DelaySeconds < 0 {
		return fmt.Errorf("delaySeconds must be non-negative, got %d", a.DelaySeconds)
	}

	switch a.Mode {
	case "", ModeMalformed, ModeUnknownStatus, ModeMissingErrorCode, ModeSuccessWithContext:
	case ModeNegativeDelay:
		if a.Steps < 1 {
			return fmt.Errorf("mode %s needs at least one in-progress step", ModeNegativeDelay)
		}
	default:
		return fmt.Errorf("unknown mode %q", a.Mode)
	}

	switch a.Result {
	case "", string(models.StatusSuccess):
	case string(models.StatusFailed):
		if a.ErrorCode == "" && a.Mode != ModeMissingErrorCode {
			return fmt.Errorf("result FAILED requires an errorCode")
		}
	default:
		return fmt.Errorf("result must be SUCCESS or FAILED, got %q", a.Result)
	}

	return nil
}

// scriptFor resolves the script for an action
func (s *Scenario) scriptFor(action models.Action) *ActionScript {
	if script, ok := s.Actions[string(action)]; ok {
		return script
	}
	return s.Default
}

// ExampleScenario documents the file format
const ExampleScenario = `# Sample handler endpoint scenario
#
# Each action gets a script: how many IN_PROGRESS responses to send
# (carrying {"step": n} context), the callback delay, and the terminal
# result. Actions without an entry use the default script.

actions:
  CREATE:
    steps: 3          # three IN_PROGRESS responses, then the result
    delaySeconds: 1   # callbackDelaySeconds on each IN_PROGRESS
    result: SUCCESS

  DELETE:
    steps: 1
    result: FAILED
    errorCode: NotFound
    message: "no such resource"

  # Failure injection: the terminal response is replaced by one the
  # invoker must reject. Modes: malformed, unknown-status,
  # missing-error-code, negative-delay, success-with-context.
  UPDATE:
    steps: 2
    mode: unknown-status

default:
  steps: 0
  result: SUCCESS
`

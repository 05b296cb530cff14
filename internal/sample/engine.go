package sample

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/models"
)

// Engine turns invocation requests into scripted responses. It keeps no
// state of its own: progress lives entirely in the callbackContext the
// caller round-trips, which is the contract behavior under test.
type Engine struct {
	scenario *Scenario
	logger   *logging.Logger
}

// NewEngine creates an engine for a scenario. A nil scenario uses the
// default script.
func NewEngine(scenario *Scenario, logger *logging.Logger) *Engine {
	if scenario == nil {
		scenario = DefaultScenario()
	}
	if logger == nil {
		logger = logging.NewLogger(logging.ERROR, false)
	}
	return &Engine{scenario: scenario, logger: logger}
}

// Step computes the response for one invocation. The returned status is
// what the response claims, for metrics labels; injected oddities
// report their literal content ("WORKING", "malformed").
func (e *Engine) Step(req models.InvocationRequest) ([]byte, string) {
	script := e.scenario.scriptFor(req.Action)
	if script == nil {
		return marshalEvent(&models.ProgressEvent{
			Status:    models.StatusFailed,
			ErrorCode: "InvalidRequest",
			Message:   fmt.Sprintf("no script for action %s", req.Action),
		}), string(models.StatusFailed)
	}

	step := stepFrom(req.CallbackContext)

	e.logger.Debug("Scripted invocation", map[string]interface{}{
		"action":       string(req.Action),
		"bearer_token": req.BearerToken,
		"step":         step,
		"steps_total":  script.Steps,
	})

	if step < script.Steps {
		return e.inProgress(script, step)
	}
	return e.terminal(script, req, step)
}

func (e *Engine) inProgress(script *ActionScript, step int) ([]byte, string) {
	event := &models.ProgressEvent{
		Status:          models.StatusInProgress,
		Message:         fmt.Sprintf("step %d of %d", step+1, script.Steps),
		CallbackContext: map[string]any{"step": step + 1},
	}

	delay := script.DelaySeconds
	if script.Mode == ModeNegativeDelay && step == 0 {
		delay = -5
	}
	if delay != 0 {
		event.CallbackDelaySeconds = &delay
	}

	return marshalEvent(event), string(models.StatusInProgress)
}

func (e *Engine) terminal(script *ActionScript, req models.InvocationRequest, step int) ([]byte, string) {
	switch script.Mode {
	case ModeMalformed:
		return []byte("resource is still being provisioned, check back later"), "malformed"

	case ModeUnknownStatus:
		body, _ := json.Marshal(map[string]any{
			"status":  "WORKING",
			"message": "almost there",
		})
		return body, "WORKING"

	case ModeMissingErrorCode:
		body, _ := json.Marshal(map[string]any{
			"status":  string(models.StatusFailed),
			"message": "it broke, not saying how",
		})
		return body, string(models.StatusFailed)

	case ModeSuccessWithContext:
		event := &models.ProgressEvent{
			Status:          models.StatusSuccess,
			Message:         messageOr(script, "done"),
			CallbackContext: map[string]any{"step": step},
			ResourceModel:   resourceModel(req),
		}
		return marshalEvent(event), string(models.StatusSuccess)
	}

	if script.Result == string(models.StatusFailed) {
		event := &models.ProgressEvent{
			Status:    models.StatusFailed,
			ErrorCode: script.ErrorCode,
			Message:   messageOr(script, "scripted failure"),
		}
		return marshalEvent(event), string(models.StatusFailed)
	}

	event := &models.ProgressEvent{
		Status:        models.StatusSuccess,
		Message:       messageOr(script, "done"),
		ResourceModel: resourceModel(req),
	}
	return marshalEvent(event), string(models.StatusSuccess)
}

// stepFrom reads the step counter out of the round-tripped context.
// JSON numbers arrive as float64.
func stepFrom(callbackContext map[string]any) int {
	switch v := callbackContext["step"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// resourceModel fabricates a model for successful responses: the
// request's properties plus a deterministic id. DELETE succeeds with no
// model; LIST wraps the model in an items envelope.
func resourceModel(req models.InvocationRequest) any {
	if req.Action == models.ActionDelete {
		return nil
	}

	model := make(map[string]any, len(req.ResourceRequest)+1)
	for k, v := range req.ResourceRequest {
		model[k] = v
	}
	model["id"] = fmt.Sprintf("%s-%s", strings.ToLower(string(req.Action)), shortToken(req.BearerToken))

	if req.Action == models.ActionList {
		return map[string]any{"items": []any{model}}
	}
	return model
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	if token == "" {
		return "anon"
	}
	return token
}

func messageOr(script *ActionScript, fallback string) string {
	if script.Message != "" {
		return script.Message
	}
	return fallback
}

func marshalEvent(event *models.ProgressEvent) []byte {
	body, err := json.Marshal(event)
	if err != nil {
		return []byte(`{"status":"FAILED","errorCode":"InternalFailure","message":"response marshaling failed"}`)
	}
	return body
}

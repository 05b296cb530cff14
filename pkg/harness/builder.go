package harness

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/provoke-dev/provoke/pkg/models"
)

// TokenSource mints the per-run correlation token.
type TokenSource func() string

// NewBearerToken is the default TokenSource: one uuid4 per run, never
// reused across runs.
func NewBearerToken() string {
	return uuid.NewString()
}

// NewRequest assembles the first invocation request of a run: a validated
// action, the caller's resource request body, an empty callback context and
// a fresh bearer token. The body must deserialize to a JSON mapping. A nil
// tokens source falls back to NewBearerToken.
func NewRequest(action models.Action, rawBody []byte, tokens TokenSource) (models.InvocationRequest, error) {
	if !action.Valid() {
		return models.InvocationRequest{}, &models.InvalidActionError{Input: string(action)}
	}

	if len(bytes.TrimSpace(rawBody)) == 0 {
		return models.InvocationRequest{}, &models.MalformedRequestError{}
	}

	var resourceRequest map[string]any
	if err := json.Unmarshal(rawBody, &resourceRequest); err != nil {
		return models.InvocationRequest{}, &models.MalformedRequestError{Err: err}
	}
	if resourceRequest == nil {
		// "null" unmarshals without error but is not a mapping
		return models.InvocationRequest{}, &models.MalformedRequestError{}
	}

	if tokens == nil {
		tokens = NewBearerToken
	}

	return models.InvocationRequest{
		Action:          action,
		ResourceRequest: resourceRequest,
		CallbackContext: map[string]any{},
		BearerToken:     tokens(),
	}, nil
}

package models

// InvocationRequest is the payload sent to the handler endpoint on each
// invocation. Field names on the wire are fixed; handlers on the other
// side of the contract depend on them.
type InvocationRequest struct {
	Action          Action         `json:"action"`
	ResourceRequest map[string]any `json:"resourceRequest"`
	CallbackContext map[string]any `json:"callbackContext"`
	BearerToken     string         `json:"bearerToken"`
}

// Next derives the request for the following invocation: same action,
// same resource request, same bearer token, with the callback context
// replaced wholesale by the one the handler returned. A nil context
// becomes an empty mapping so handlers always receive an object.
func (r InvocationRequest) Next(callbackContext map[string]any) InvocationRequest {
	next := r
	if callbackContext == nil {
		callbackContext = map[string]any{}
	}
	next.CallbackContext = callbackContext
	return next
}

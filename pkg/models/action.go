package models

import "strings"

// Action identifies the resource lifecycle operation a handler implements.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionList   Action = "LIST"
)

// Actions returns all supported lifecycle actions in canonical order.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}
}

// ParseAction validates an action name. Input is case-insensitive; the
// canonical uppercase form is returned. Unrecognized values fail with
// InvalidActionError so a run can be rejected before any invocation.
func ParseAction(s string) (Action, error) {
	candidate := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, a := range Actions() {
		if candidate == a {
			return a, nil
		}
	}
	return "", &InvalidActionError{Input: s}
}

// Valid reports whether the action is one of the supported lifecycle actions.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

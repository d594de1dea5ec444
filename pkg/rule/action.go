package rule

import (
	"encoding/json"
	"fmt"
)

// Action is one action definition in a rule's `then` list. Params hold the
// action-specific parameters, flattened next to the action name on the wire:
//
//	{"action": "snooze", "duration": 3600000, "wakeInto": "Later"}
type Action struct {
	Params map[string]any
	Name   string
}

// NewAction builds an action definition; params may be nil.
func NewAction(name string, params map[string]any) Action {
	return Action{Name: name, Params: params}
}

// Param returns the named parameter, or nil if absent.
func (a Action) Param(name string) any {
	return a.Params[name]
}

// StringParam returns the named parameter coerced to a string, or "" when
// absent or not a string.
func (a Action) StringParam(name string) string {
	s, _ := a.Params[name].(string)

	return s
}

func (a Action) MarshalJSON() ([]byte, error) {
	w := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		w[k] = valueToWire(v)
	}

	w["action"] = a.Name

	return json.Marshal(w) //nolint:wrapcheck // Plain map cannot fail.
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var w map[string]any

	err := json.Unmarshal(data, &w)
	if err != nil {
		return fmt.Errorf("decode action: %w", err)
	}

	name, ok := w["action"].(string)
	if !ok || name == "" {
		return fmt.Errorf("action definition missing \"action\" key")
	}

	delete(w, "action")

	a.Name = name

	a.Params = nil
	if len(w) > 0 {
		a.Params = w
	}

	return nil
}

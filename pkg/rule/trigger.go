package rule

import (
	"encoding/json"
	"fmt"
)

// TriggerKind discriminates trigger specs. Triggers are opaque to the
// engine; they parse, serialize, and are carried on the rule, but nothing in
// this module fires them.
type TriggerKind string

const (
	// TriggerImmediate fires as soon as the rule is loaded.
	TriggerImmediate TriggerKind = "immediate"
	// TriggerOnAction fires only on explicit user action ("manual" in DSL).
	TriggerOnAction TriggerKind = "onAction"
	// TriggerInterval fires repeatedly with the configured period.
	TriggerInterval TriggerKind = "interval"
	// TriggerOnce fires a single time at the configured timestamp.
	TriggerOnce TriggerKind = "once"
)

// Trigger is a rule's trigger spec.
type Trigger struct {
	// Kind discriminates the spec.
	Kind TriggerKind
	// Every is the period for [TriggerInterval].
	Every Duration
	// At is the timestamp literal for [TriggerOnce].
	At string
}

func (t Trigger) MarshalJSON() ([]byte, error) {
	var w map[string]any

	switch t.Kind {
	case TriggerImmediate:
		w = map[string]any{"immediate": true}
	case TriggerOnAction:
		w = map[string]any{"onAction": true}
	case TriggerInterval:
		w = map[string]any{"every": t.Every.Millis()}
	case TriggerOnce:
		w = map[string]any{"at": t.At}
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", t.Kind)
	}

	return json.Marshal(w) //nolint:wrapcheck // Plain map cannot fail.
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	var w struct {
		At        *string  `json:"at"`
		Every     *float64 `json:"every"`
		Immediate bool     `json:"immediate"`
		OnAction  bool     `json:"onAction"`
	}

	err := json.Unmarshal(data, &w)
	if err != nil {
		return fmt.Errorf("decode trigger: %w", err)
	}

	switch {
	case w.Immediate:
		t.Kind = TriggerImmediate
	case w.OnAction:
		t.Kind = TriggerOnAction
	case w.Every != nil:
		t.Kind = TriggerInterval
		t.Every = MillisDuration(*w.Every)
	case w.At != nil:
		t.Kind = TriggerOnce
		t.At = *w.At
	default:
		return fmt.Errorf("unrecognized trigger spec")
	}

	return nil
}

// MillisDuration converts raw milliseconds to a [Duration].
func MillisDuration(ms float64) Duration {
	return Duration(int64(ms) * int64(1e6))
}

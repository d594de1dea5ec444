package rule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
)

// Flags recognized by the engine. Unknown flags are dropped with a debug log.
const (
	// FlagSingleTab allows group commands to target a single tab.
	FlagSingleTab = "singleTab"
	// FlagSkipPinned excludes pinned tabs from the rule's matches.
	FlagSkipPinned = "skipPinned"
	// FlagSkipGrouped excludes tabs that already belong to a group.
	FlagSkipGrouped = "skipGrouped"
	// FlagQuiet suppresses per-command engine logging for this rule.
	FlagQuiet = "quiet"
)

// KnownFlags is the closed set of recognized rule flags.
var KnownFlags = []string{FlagSingleTab, FlagSkipPinned, FlagSkipGrouped, FlagQuiet}

// Rule is one named unit of the rules engine: an optional condition tree, a
// required non-empty action list, an opaque trigger spec, and flags.
type Rule struct {
	// When is the condition tree; nil matches every tab.
	When Condition
	// Trigger is carried opaquely; nothing in the engine fires it.
	Trigger *Trigger
	// ID is optional and assigned by the caller.
	ID string
	// Name labels the rule in logs and results.
	Name string
	// Then is the ordered action list.
	Then []Action
	// Flags holds the recognized toggles set on this rule.
	Flags []string
	// Enabled gates the rule during engine runs.
	Enabled bool
}

// HasFlag reports whether the rule carries the given flag.
func (r *Rule) HasFlag(flag string) bool {
	return slices.Contains(r.Flags, flag)
}

// Validate checks the structural invariants of a rule.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}

	if len(r.Then) == 0 {
		return fmt.Errorf("rule %q has no actions", r.Name)
	}

	for _, a := range r.Then {
		if a.Name == "" {
			return fmt.Errorf("rule %q has an action without a name", r.Name)
		}
	}

	return nil
}

// NormalizeFlags drops unrecognized flags, preserving order.
func NormalizeFlags(flags []string) []string {
	var out []string

	for _, f := range flags {
		if slices.Contains(KnownFlags, f) {
			out = append(out, f)
			continue
		}

		slog.Debug("ignoring unknown rule flag", slog.String("flag", f))
	}

	return out
}

type ruleWire struct {
	When    json.RawMessage `json:"when,omitempty"`
	Trigger *Trigger        `json:"trigger,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name"`
	Then    []Action        `json:"then"`
	Flags   []string        `json:"flags,omitempty"`
	Enabled *bool           `json:"enabled,omitempty"`
}

// MarshalJSON encodes the rule in its wire form, with the condition tree in
// the {combinator|operator: operands} shape.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleWire{
		ID:      r.ID,
		Name:    r.Name,
		Then:    r.Then,
		Trigger: r.Trigger,
		Flags:   r.Flags,
		Enabled: &r.Enabled,
	}

	if r.When != nil {
		data, err := MarshalCondition(r.When)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}

		w.When = data
	}

	return json.Marshal(w) //nolint:wrapcheck // Wire struct cannot fail.
}

// UnmarshalJSON decodes the wire form. A missing "enabled" defaults to true;
// a missing "when" means match-all.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire

	err := json.Unmarshal(data, &w)
	if err != nil {
		return fmt.Errorf("decode rule: %w", err)
	}

	r.ID = w.ID
	r.Name = w.Name
	r.Then = w.Then
	r.Trigger = w.Trigger
	r.Flags = NormalizeFlags(w.Flags)

	r.Enabled = true
	if w.Enabled != nil {
		r.Enabled = *w.Enabled
	}

	r.When = nil
	if len(w.When) > 0 {
		cond, err := UnmarshalCondition(w.When)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}

		r.When = cond
	}

	return nil
}

package command

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize/english"
)

var (
	// ErrNoTargets indicates a command without any target tabs.
	ErrNoTargets = errors.New("command has no targets")
	// ErrMissingParam indicates a required action parameter is absent.
	ErrMissingParam = errors.New("missing required parameter")
	// ErrTooFewTargets indicates a group command targeting a single tab.
	ErrTooFewTargets = errors.New("too few targets")
)

var commandSeq atomic.Uint64

// Command is one concrete, executable unit: an action applied to a target
// tab set. Commands are created per execution pass and discarded afterwards.
type Command struct {
	Timestamp time.Time      `json:"timestamp"`
	Params    map[string]any `json:"params,omitempty"`
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	TargetIDs []int          `json:"targetIds"`
}

// New builds a command with a fresh ID and the current timestamp. The
// target slice is copied; TargetIDs is always a slice, never a scalar.
func New(action Action, targetIDs []int, params map[string]any) Command {
	return Command{
		ID:        fmt.Sprintf("%s-%d", action, commandSeq.Add(1)),
		Action:    action,
		TargetIDs: slices.Clone(targetIDs),
		Params:    maps.Clone(params),
		Timestamp: time.Now(),
	}
}

// Param returns an action parameter, or nil.
func (c Command) Param(name string) any {
	return c.Params[name]
}

// BoolParam returns a boolean parameter, false when absent or mistyped.
func (c Command) BoolParam(name string) bool {
	b, _ := c.Params[name].(bool)

	return b
}

// Validate runs the action-specific structural checks. The returned list is
// empty for a valid command.
func (c Command) Validate() []error {
	var errs []error

	if len(c.TargetIDs) == 0 {
		errs = append(errs, fmt.Errorf("%s: %w", c.ID, ErrNoTargets))
	}

	switch c.Action {
	case ActionSnooze:
		if c.Param("duration") == nil && c.Param("until") == nil {
			errs = append(errs, fmt.Errorf("%s: %w: duration or until", c.ID, ErrMissingParam))
		}

	case ActionGroup:
		if len(c.TargetIDs) < 2 && !c.BoolParam("singleTab") {
			errs = append(errs, fmt.Errorf("%s: %w: group needs at least 2 targets", c.ID, ErrTooFewTargets))
		}

	case ActionMove:
		if c.Param("windowId") == nil {
			errs = append(errs, fmt.Errorf("%s: %w: windowId", c.ID, ErrMissingParam))
		}

		if c.Param("index") == nil {
			errs = append(errs, fmt.Errorf("%s: %w: index", c.ID, ErrMissingParam))
		}
	}

	return errs
}

// Preview describes what a command would do without executing it.
type Preview struct {
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
}

// Preview renders a human-readable description of the command.
func (c Command) Preview() Preview {
	tabs := english.Plural(len(c.TargetIDs), "tab", "")

	var desc string

	switch c.Action {
	case ActionClose:
		desc = "Close " + tabs
	case ActionPin:
		desc = "Pin " + tabs
	case ActionUnpin:
		desc = "Unpin " + tabs
	case ActionMute:
		desc = "Mute " + tabs
	case ActionUnmute:
		desc = "Unmute " + tabs
	case ActionSuspend:
		desc = "Suspend " + tabs
	case ActionBookmark:
		desc = "Bookmark " + tabs
		if folder, ok := c.Param("folder").(string); ok && folder != "" {
			desc += fmt.Sprintf(" to %q", folder)
		}
	case ActionGroup:
		desc = "Group " + tabs
		if name, ok := c.Param("name").(string); ok && name != "" {
			desc += fmt.Sprintf(" as %q", name)
		}
	case ActionMove:
		desc = fmt.Sprintf("Move %s to window %v", tabs, c.Param("windowId"))
	case ActionSnooze:
		desc = "Snooze " + tabs
	default:
		desc = fmt.Sprintf("%s %s", strings.ToUpper(string(c.Action)[:1])+string(c.Action)[1:], tabs)
	}

	return Preview{
		Description: desc,
		Reversible:  c.Action.Reversible(),
	}
}

// ConflictsWith reports whether the two commands share a target and carry
// mutually exclusive actions.
func (c Command) ConflictsWith(other Command) bool {
	if !c.Action.Excludes(other.Action) {
		return false
	}

	for _, id := range c.TargetIDs {
		if slices.Contains(other.TargetIDs, id) {
			return true
		}
	}

	return false
}

// Override mutates a cloned command.
type Override func(*Command)

// WithTargets replaces the target set.
func WithTargets(ids ...int) Override {
	return func(c *Command) {
		c.TargetIDs = slices.Clone(ids)
	}
}

// WithAction replaces the action.
func WithAction(a Action) Override {
	return func(c *Command) {
		c.Action = a
	}
}

// WithParam sets one parameter.
func WithParam(name string, value any) Override {
	return func(c *Command) {
		if c.Params == nil {
			c.Params = map[string]any{}
		}

		c.Params[name] = value
	}
}

// Clone returns a deep copy with the overrides applied. The copy keeps the
// original ID and timestamp unless an override changes them.
func (c Command) Clone(overrides ...Override) Command {
	out := c
	out.TargetIDs = slices.Clone(c.TargetIDs)
	out.Params = maps.Clone(c.Params)

	for _, o := range overrides {
		o(&out)
	}

	return out
}

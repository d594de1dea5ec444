package engine

import (
	"github.com/tabmaster/tabmaster/pkg/command"
)

// Event is broadcast to subscribers around engine activity.
type Event any

// RunStart is broadcast when an execution pass begins.
type RunStart struct {
	Rules int
	Tabs  int
}

// RunEnd is broadcast when an execution pass finishes.
type RunEnd struct {
	Result *command.ExecutionResult
}

// RulesetReload is broadcast after a watched ruleset file is reloaded.
type RulesetReload struct {
	Path  string
	Rules int
}

// RulesetError is broadcast when reloading a watched ruleset fails. The
// engine keeps the previous rules.
type RulesetError struct {
	Err  error
	Path string
}

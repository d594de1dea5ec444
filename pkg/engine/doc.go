// Package engine connects the pieces: it builds the evaluation context for a
// snapshot, selects matching tabs per rule, expands them into commands, and
// hands the resolved queue to the dispatcher. It can also watch a ruleset
// file and reload rules on change.
package engine

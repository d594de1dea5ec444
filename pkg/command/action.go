package command

// Action is the closed set of host operations a command can request.
type Action string

const (
	ActionBookmark Action = "bookmark"
	ActionPin      Action = "pin"
	ActionUnpin    Action = "unpin"
	ActionMute     Action = "mute"
	ActionUnmute   Action = "unmute"
	ActionGroup    Action = "group"
	ActionMove     Action = "move"
	ActionSuspend  Action = "suspend"
	ActionSnooze   Action = "snooze"
	ActionClose    Action = "close"
)

// unknownPriority sorts actions outside the fixed order after everything.
const unknownPriority = 99

var priorities = map[Action]int{
	ActionBookmark: 1,
	ActionPin:      2,
	ActionUnpin:    2,
	ActionMute:     3,
	ActionUnmute:   3,
	ActionGroup:    4,
	ActionMove:     5,
	ActionSuspend:  6,
	ActionSnooze:   7,
	ActionClose:    8,
}

// Priority returns the action's position in the fixed execution order.
// Lower numbers execute first.
func (a Action) Priority() int {
	if p, ok := priorities[a]; ok {
		return p
	}

	return unknownPriority
}

// Known reports whether the action is part of the closed set.
func (a Action) Known() bool {
	_, ok := priorities[a]

	return ok
}

// Reversible reports whether the action can be undone by the host.
// Closing a tab is the only irreversible operation.
func (a Action) Reversible() bool {
	return a != ActionClose
}

// exclusions is the static mutual-exclusion table. Pairs are stored
// symmetrically; Excludes never consults it one-directionally.
var exclusions = buildExclusions(map[Action][]Action{
	ActionPin:  {ActionUnpin},
	ActionMute: {ActionUnmute},
	ActionClose: {
		ActionGroup, ActionSnooze, ActionBookmark,
		ActionPin, ActionUnpin, ActionMute, ActionUnmute, ActionSuspend,
	},
})

func buildExclusions(pairs map[Action][]Action) map[Action]map[Action]struct{} {
	out := map[Action]map[Action]struct{}{}
	add := func(a, b Action) {
		if out[a] == nil {
			out[a] = map[Action]struct{}{}
		}

		out[a][b] = struct{}{}
	}

	for a, others := range pairs {
		for _, b := range others {
			add(a, b)
			add(b, a)
		}
	}

	return out
}

// Excludes reports whether the two actions are mutually exclusive on a
// shared target.
func (a Action) Excludes(b Action) bool {
	_, ok := exclusions[a][b]

	return ok
}

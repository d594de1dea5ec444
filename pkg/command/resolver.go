package command

import (
	"sort"
)

// SkipReasonConflict marks a command dropped by conflict resolution.
const SkipReasonConflict = "conflict with higher-priority command"

// Skipped is a command removed from the execution queue, with the reason.
type Skipped struct {
	Reason  string  `json:"reason"`
	Command Command `json:"command"`
}

// Resolve de-conflicts a command list. Targets are claimed in descending
// priority order, so the strongest action on a tab wins: a close beats a pin
// on the same target. The accepted commands are then returned in ascending
// execution order (bookmark first, close last). Both sorts are stable, so
// the result is deterministic for a fixed input order and ties keep source
// order.
func Resolve(cmds []Command) (accepted []Command, skipped []Skipped) {
	ordered := make([]Command, len(cmds))
	copy(ordered, cmds)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Action.Priority() > ordered[j].Action.Priority()
	})

	// Accepted actions per target ID.
	taken := map[int][]Action{}

	for _, cmd := range ordered {
		if conflicts(cmd, taken) {
			skipped = append(skipped, Skipped{Command: cmd, Reason: SkipReasonConflict})

			continue
		}

		accepted = append(accepted, cmd)

		for _, id := range cmd.TargetIDs {
			taken[id] = append(taken[id], cmd.Action)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Action.Priority() < accepted[j].Action.Priority()
	})

	return accepted, skipped
}

func conflicts(cmd Command, taken map[int][]Action) bool {
	for _, id := range cmd.TargetIDs {
		for _, action := range taken[id] {
			if cmd.Action.Excludes(action) {
				return true
			}
		}
	}

	return false
}

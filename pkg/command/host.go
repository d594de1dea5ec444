package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tabmaster/tabmaster/pkg/rule"
)

// ErrNoHandler indicates no handler is registered for a command's action.
var ErrNoHandler = errors.New("no handler for action")

// Host performs the real tab and window operations. The engine never mutates
// tabs itself; every accepted command ends in exactly one Host call.
type Host interface {
	CloseTabs(ctx context.Context, ids []int) error
	SetPinned(ctx context.Context, ids []int, pinned bool) error
	SetMuted(ctx context.Context, ids []int, muted bool) error
	SuspendTabs(ctx context.Context, ids []int) error
	GroupTabs(ctx context.Context, ids []int, spec GroupSpec) error
	SnoozeTabs(ctx context.Context, ids []int, spec SnoozeSpec) error
	BookmarkTabs(ctx context.Context, ids []int, folder string) error
	// MoveTabs places tabs in windowID at index; -1 means the end of the
	// window.
	MoveTabs(ctx context.Context, ids []int, windowID, index int) error
}

// GroupSpec carries group-command parameters to the host.
type GroupSpec struct {
	// Name is the explicit group title, empty for partitioned groups.
	Name string
	// Key is the partition key (domain or window ID) for by-partition groups.
	Key string
	// Color is the deterministic palette color for the group.
	Color string
}

// SnoozeSpec carries snooze-command parameters to the host.
type SnoozeSpec struct {
	// Until is an absolute wake timestamp, empty when Duration is set.
	Until string
	// WakeInto names the group restored tabs join.
	WakeInto string
	// Duration is the relative snooze length, zero when Until is set.
	Duration time.Duration
}

// Handler executes one command against the host.
type Handler interface {
	Execute(ctx context.Context, cmd Command) error
}

// HandlerFunc adapts a function to the [Handler] interface.
type HandlerFunc func(ctx context.Context, cmd Command) error

func (f HandlerFunc) Execute(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// DefaultHandlers builds the standard registry: every known action delegates
// to the corresponding host operation.
func DefaultHandlers(host Host) map[Action]Handler {
	return map[Action]Handler{
		ActionClose: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.CloseTabs(ctx, cmd.TargetIDs)
		}),
		ActionPin: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.SetPinned(ctx, cmd.TargetIDs, true)
		}),
		ActionUnpin: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.SetPinned(ctx, cmd.TargetIDs, false)
		}),
		ActionMute: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.SetMuted(ctx, cmd.TargetIDs, true)
		}),
		ActionUnmute: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.SetMuted(ctx, cmd.TargetIDs, false)
		}),
		ActionSuspend: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.SuspendTabs(ctx, cmd.TargetIDs)
		}),
		ActionGroup: HandlerFunc(func(ctx context.Context, cmd Command) error {
			spec := GroupSpec{
				Name:  stringParam(cmd, "name"),
				Key:   stringParam(cmd, "key"),
				Color: stringParam(cmd, "color"),
			}

			return host.GroupTabs(ctx, cmd.TargetIDs, spec)
		}),
		ActionSnooze: HandlerFunc(func(ctx context.Context, cmd Command) error {
			spec := SnoozeSpec{
				Duration: durationParam(cmd, "duration"),
				Until:    stringParam(cmd, "until"),
				WakeInto: stringParam(cmd, "wakeInto"),
			}

			return host.SnoozeTabs(ctx, cmd.TargetIDs, spec)
		}),
		ActionBookmark: HandlerFunc(func(ctx context.Context, cmd Command) error {
			return host.BookmarkTabs(ctx, cmd.TargetIDs, stringParam(cmd, "folder"))
		}),
		ActionMove: HandlerFunc(func(ctx context.Context, cmd Command) error {
			windowID, err := intParam(cmd, "windowId")
			if err != nil {
				return err
			}

			idx, err := intParam(cmd, "index")
			if err != nil {
				return err
			}

			return host.MoveTabs(ctx, cmd.TargetIDs, windowID, idx)
		}),
	}
}

func stringParam(cmd Command, name string) string {
	s, _ := cmd.Param(name).(string)

	return s
}

// durationParam accepts a duration literal or raw milliseconds.
func durationParam(cmd Command, name string) time.Duration {
	switch v := cmd.Param(name).(type) {
	case rule.Duration:
		return time.Duration(v)
	case time.Duration:
		return v
	case float64:
		return time.Duration(v) * time.Millisecond
	default:
		return 0
	}
}

func intParam(cmd Command, name string) (int, error) {
	switch v := cmd.Param(name).(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
}

package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabmaster/tabmaster/pkg/log"
)

// SkipReasonAborted marks commands left unattempted after a mid-queue
// handler failure without continueOnError.
const SkipReasonAborted = "not attempted: execution aborted"

// EventName identifies a dispatcher lifecycle event.
type EventName string

const (
	EventBeforeExecute EventName = "beforeExecute"
	EventAfterExecute  EventName = "afterExecute"
	EventError         EventName = "error"
)

// Event is delivered to registered listeners around command execution.
type Event struct {
	Err     error
	Outcome *Outcome
	Name    EventName
	Command Command
}

// Listener receives dispatcher events. Panics are swallowed and logged,
// never propagated to the execution loop.
type Listener func(Event)

// Outcome records one command's terminal state.
type Outcome struct {
	Command  Command       `json:"command"`
	State    State         `json:"state"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	DryRun   bool          `json:"dryRun"`
	Success  bool          `json:"success"`
}

// ExecutionResult is the structured outcome of one Execute call.
type ExecutionResult struct {
	Executed      []Outcome     `json:"executed"`
	Skipped       []Skipped     `json:"skipped"`
	Errors        []error       `json:"-"`
	TotalCommands int           `json:"totalCommands"`
	Duration      time.Duration `json:"duration"`
}

// Options controls one Execute call.
type Options struct {
	// DryRun records previews without invoking handlers.
	DryRun bool
	// Force proceeds past validation failures.
	Force bool
	// ContinueOnError keeps executing the queue after a handler failure.
	ContinueOnError bool
}

// Dispatcher owns the handler registry, lifecycle listeners, and the bounded
// execution log. Commands run strictly one at a time, in resolved order.
type Dispatcher struct {
	tracer    trace.Tracer
	handlers  map[Action]Handler
	listeners map[EventName]map[int]Listener
	execLog   *ExecutionLog
	nextID    int
	mu        sync.Mutex
}

// Opt configures a dispatcher.
type Opt func(*Dispatcher)

// WithHost installs the default handlers for every known action, delegating
// to the given host.
func WithHost(host Host) Opt {
	return func(d *Dispatcher) {
		for action, h := range DefaultHandlers(host) {
			d.handlers[action] = h
		}
	}
}

// WithHandler registers or overrides a single handler.
func WithHandler(action Action, h Handler) Opt {
	return func(d *Dispatcher) {
		d.handlers[action] = h
	}
}

// WithLogCapacity bounds the execution log.
func WithLogCapacity(n int) Opt {
	return func(d *Dispatcher) {
		d.execLog = NewExecutionLog(n)
	}
}

// NewDispatcher creates a dispatcher. Without a [WithHost] or [WithHandler]
// option the registry is empty and every command fails with [ErrNoHandler].
func NewDispatcher(opts ...Opt) *Dispatcher {
	d := &Dispatcher{
		tracer:    otel.Tracer("dispatcher"),
		handlers:  map[Action]Handler{},
		listeners: map[EventName]map[int]Listener{},
		execLog:   NewExecutionLog(defaultLogCapacity),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register adds or replaces the handler for an action.
func (d *Dispatcher) Register(action Action, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[action] = h
}

// On registers a listener for an event, returning an ID for [Dispatcher.Off].
func (d *Dispatcher) On(name EventName, fn Listener) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listeners[name] == nil {
		d.listeners[name] = map[int]Listener{}
	}

	d.nextID++
	d.listeners[name][d.nextID] = fn

	return d.nextID
}

// Off removes a previously registered listener.
func (d *Dispatcher) Off(name EventName, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.listeners[name], id)
}

// Log returns the dispatcher's execution log.
func (d *Dispatcher) Log() *ExecutionLog {
	return d.execLog
}

// Execute validates, resolves, and runs a command queue. It returns a
// structured result; the only way a command failure surfaces is through
// [ExecutionResult.Errors].
func (d *Dispatcher) Execute(ctx context.Context, cmds []Command, opts Options) *ExecutionResult {
	ctx, span := d.tracer.Start(ctx, "execute", trace.WithAttributes(
		attribute.Int("commands", len(cmds)),
		attribute.Bool("dry_run", opts.DryRun),
	))
	defer span.End()

	logger := log.WithContext(ctx)
	start := time.Now()

	result := &ExecutionResult{TotalCommands: len(cmds)}
	defer func() {
		result.Duration = time.Since(start)
		d.execLog.Append(result)
	}()

	for _, cmd := range cmds {
		for _, err := range cmd.Validate() {
			result.Errors = append(result.Errors, fmt.Errorf("validate: %w", err))
		}
	}

	if len(result.Errors) > 0 && !opts.Force {
		logger.WarnContext(ctx, "execution aborted by validation",
			slog.Int("errors", len(result.Errors)),
		)

		return result
	}

	accepted, skipped := Resolve(cmds)
	result.Skipped = skipped

	for i, cmd := range accepted {
		d.emit(ctx, Event{Name: EventBeforeExecute, Command: cmd})

		outcome := d.executeOne(ctx, cmd, opts)
		result.Executed = append(result.Executed, outcome)

		if outcome.Success {
			d.emit(ctx, Event{Name: EventAfterExecute, Command: cmd, Outcome: &outcome})

			continue
		}

		err := fmt.Errorf("%s: %s", cmd.ID, outcome.Error)
		result.Errors = append(result.Errors, err)
		d.emit(ctx, Event{Name: EventError, Command: cmd, Outcome: &outcome, Err: err})

		if !opts.ContinueOnError {
			for _, rest := range accepted[i+1:] {
				result.Skipped = append(result.Skipped, Skipped{
					Command: rest,
					Reason:  SkipReasonAborted,
				})
			}

			break
		}
	}

	return result
}

func (d *Dispatcher) executeOne(ctx context.Context, cmd Command, opts Options) Outcome {
	ctx, span := d.tracer.Start(ctx, "command", trace.WithAttributes(
		attribute.String("id", cmd.ID),
		attribute.String("action", string(cmd.Action)),
		attribute.Int("targets", len(cmd.TargetIDs)),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(
		slog.String("id", cmd.ID),
		slog.String("action", string(cmd.Action)),
	)

	start := time.Now()

	if opts.DryRun {
		logger.InfoContext(ctx, "dry run", slog.String("preview", cmd.Preview().Description))

		return Outcome{
			Command:  cmd,
			State:    StatePreviewed,
			DryRun:   true,
			Success:  true,
			Duration: time.Since(start),
		}
	}

	d.mu.Lock()
	handler, ok := d.handlers[cmd.Action]
	d.mu.Unlock()

	if !ok {
		return Outcome{
			Command:  cmd,
			State:    StateFailed,
			Error:    fmt.Sprintf("%v: %s", ErrNoHandler, cmd.Action),
			Duration: time.Since(start),
		}
	}

	if err := handler.Execute(ctx, cmd); err != nil {
		logger.ErrorContext(ctx, "command failed", slog.Any("error", err))

		return Outcome{
			Command:  cmd,
			State:    StateFailed,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	logger.DebugContext(ctx, "command executed",
		slog.Duration("duration", time.Since(start)),
	)

	return Outcome{
		Command:  cmd,
		State:    StateSucceeded,
		Success:  true,
		Duration: time.Since(start),
	}
}

// emit delivers an event to every listener registered for it. A panicking
// listener is logged and skipped.
func (d *Dispatcher) emit(ctx context.Context, evt Event) {
	d.mu.Lock()

	fns := make([]Listener, 0, len(d.listeners[evt.Name]))
	for _, fn := range d.listeners[evt.Name] {
		fns = append(fns, fn)
	}

	d.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithContext(ctx).ErrorContext(ctx, "event listener panicked",
						slog.String("event", string(evt.Name)),
						slog.Any("panic", r),
					)
				}
			}()

			fn(evt)
		}()
	}
}

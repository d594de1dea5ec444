package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/eval"
	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/log"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

// Engine runs rule sets against tab snapshots. One engine owns one
// dispatcher; execution passes run strictly one at a time.
type Engine struct {
	tracer     trace.Tracer
	dispatcher *command.Dispatcher
	rules      []rule.Rule
	indexOpts  []index.Opt
	execOpts   command.Options
	listeners  []chan<- Event
	mu         sync.Mutex
}

// Opt configures an engine.
type Opt func(*Engine)

// WithRules sets the initial rule list.
func WithRules(rules []rule.Rule) Opt {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithDispatcher replaces the dispatcher.
func WithDispatcher(d *command.Dispatcher) Opt {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithHost installs default handlers for the host on the engine's dispatcher.
func WithHost(host command.Host) Opt {
	return func(e *Engine) {
		e.dispatcher = command.NewDispatcher(command.WithHost(host))
	}
}

// WithIndexOpts forwards options to the context build of every run.
func WithIndexOpts(opts ...index.Opt) Opt {
	return func(e *Engine) {
		e.indexOpts = opts
	}
}

// WithExecuteOptions sets the execution options used by [Engine.Run].
func WithExecuteOptions(opts command.Options) Opt {
	return func(e *Engine) {
		e.execOpts = opts
	}
}

// New creates an engine. Without [WithDispatcher] or [WithHost] the engine
// gets an empty dispatcher, useful only for [Engine.Plan].
func New(opts ...Opt) *Engine {
	e := &Engine{
		tracer:     otel.Tracer("engine"),
		dispatcher: command.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Dispatcher exposes the engine's dispatcher for event registration.
func (e *Engine) Dispatcher() *command.Dispatcher {
	return e.dispatcher
}

// Rules returns the current rule list.
func (e *Engine) Rules() []rule.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rules
}

// SetRules swaps the rule list used by subsequent runs.
func (e *Engine) SetRules(rules []rule.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = rules
}

// Subscribe registers a channel receiving engine events. The channel should
// be buffered; when it is full, events are dropped rather than stall the
// engine.
func (e *Engine) Subscribe(ch chan<- Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, ch)
}

func (e *Engine) broadcast(ctx context.Context, evt Event) {
	e.mu.Lock()
	listeners := make([]chan<- Event, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	log.WithContext(ctx).DebugContext(ctx, "broadcasting event",
		slog.String("event", fmt.Sprintf("%T", evt)),
	)

	for _, ch := range listeners {
		select {
		case ch <- evt:
		default:
			log.WithContext(ctx).WarnContext(ctx, "subscriber full, dropping event",
				slog.String("event", fmt.Sprintf("%T", evt)),
			)
		}
	}
}

// Plan builds the resolved command queue for a snapshot without executing
// anything: context build, per-rule selection, flag filtering, fan-out.
func (e *Engine) Plan(ctx context.Context, snap *tab.Snapshot) []command.Command {
	ctx, span := e.tracer.Start(ctx, "plan", trace.WithAttributes(
		attribute.Int("tabs", len(snap.Tabs)),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	ec := index.Build(snap, e.indexOpts...)
	factory := command.NewFactory(ec)

	var cmds []command.Command

	for _, r := range e.Rules() {
		if !r.Enabled {
			continue
		}

		matches := filterByFlags(r, eval.Select(r, ec))
		if len(matches) == 0 {
			continue
		}

		if !r.HasFlag(rule.FlagQuiet) {
			logger.DebugContext(ctx, "rule matched",
				slog.String("rule", r.Name),
				slog.Int("tabs", len(matches)),
			)
		}

		cmds = append(cmds, factory.Commands(r, matches)...)
	}

	return cmds
}

// Run executes the current rules against a snapshot and returns the
// structured result.
func (e *Engine) Run(ctx context.Context, snap *tab.Snapshot) *command.ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.Int("tabs", len(snap.Tabs)),
		attribute.Int("rules", len(e.Rules())),
	))
	defer span.End()

	// Scope run attributes onto everything logged below, dispatcher included.
	ctx = log.IntoContext(ctx, log.WithContext(ctx).With(
		slog.Int("rules", len(e.Rules())),
		slog.Int("tabs", len(snap.Tabs)),
	))

	e.broadcast(ctx, RunStart{Rules: len(e.Rules()), Tabs: len(snap.Tabs)})

	cmds := e.Plan(ctx, snap)
	result := e.dispatcher.Execute(ctx, cmds, e.execOpts)

	log.WithContext(ctx).InfoContext(ctx, "run finished",
		slog.Int("commands", result.TotalCommands),
		slog.Int("executed", len(result.Executed)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration),
	)

	e.broadcast(ctx, RunEnd{Result: result})

	return result
}

// filterByFlags applies the rule's match filters: skipPinned removes pinned
// tabs, skipGrouped removes tabs already in a group.
func filterByFlags(r rule.Rule, matches []tab.Tab) []tab.Tab {
	skipPinned := r.HasFlag(rule.FlagSkipPinned)
	skipGrouped := r.HasFlag(rule.FlagSkipGrouped)

	if !skipPinned && !skipGrouped {
		return matches
	}

	var out []tab.Tab

	for _, t := range matches {
		if skipPinned && t.Pinned {
			continue
		}

		if skipGrouped && t.Grouped() {
			continue
		}

		out = append(out, t)
	}

	return out
}

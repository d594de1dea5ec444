package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/dsl"
	"github.com/tabmaster/tabmaster/pkg/engine"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

func mustRules(t *testing.T, source string) []rule.Rule {
	t.Helper()

	rules, err := dsl.Parse(source)
	require.NoError(t, err)

	return rules
}

func testSnapshot() *tab.Snapshot {
	return &tab.Snapshot{
		Tabs: []tab.Tab{
			{ID: 1, URL: "https://a.com/x", Title: "A", WindowID: 10, GroupID: -1},
			{ID: 2, URL: "https://a.com/y", Title: "A2", WindowID: 10, GroupID: -1, Pinned: true},
			{ID: 3, URL: "https://b.com/", Title: "B", WindowID: 10, GroupID: 4},
		},
		Windows: []tab.Window{
			{ID: 10, State: "normal", Type: "normal", Focused: true},
		},
	}
}

func TestPlan_FanOut(t *testing.T) {
	t.Parallel()

	e := engine.New(engine.WithRules(mustRules(t, `rule "mute-a" { when tab.url contains "a.com" then mute }`)))

	cmds := e.Plan(t.Context(), testSnapshot())

	require.Len(t, cmds, 2)
	assert.Equal(t, command.ActionMute, cmds[0].Action)
	assert.Equal(t, []int{1}, cmds[0].TargetIDs)
	assert.Equal(t, []int{2}, cmds[1].TargetIDs)
}

func TestPlan_SkipPinnedFlag(t *testing.T) {
	t.Parallel()

	e := engine.New(engine.WithRules(mustRules(t,
		`rule "mute-a" { when tab.url contains "a.com" then mute flags skipPinned }`,
	)))

	cmds := e.Plan(t.Context(), testSnapshot())

	require.Len(t, cmds, 1)
	assert.Equal(t, []int{1}, cmds[0].TargetIDs)
}

func TestPlan_SkipGroupedFlag(t *testing.T) {
	t.Parallel()

	e := engine.New(engine.WithRules(mustRules(t,
		`rule "suspend-all" { when tab.id gt 0 then suspend flags skipGrouped }`,
	)))

	cmds := e.Plan(t.Context(), testSnapshot())

	require.Len(t, cmds, 2)
	for _, cmd := range cmds {
		assert.NotContains(t, cmd.TargetIDs, 3)
	}
}

func TestPlan_DisabledRuleSkipped(t *testing.T) {
	t.Parallel()

	rules := mustRules(t, `rule "mute-a" { when tab.url contains "a.com" then mute }`)
	rules[0].Enabled = false

	e := engine.New(engine.WithRules(rules))

	assert.Empty(t, e.Plan(t.Context(), testSnapshot()))
}

func TestPlan_NoMatches(t *testing.T) {
	t.Parallel()

	e := engine.New(engine.WithRules(mustRules(t,
		`rule "mute-z" { when tab.url contains "z.example" then mute }`,
	)))

	assert.Empty(t, e.Plan(t.Context(), testSnapshot()))
}

func TestRun_ExecutesAndBroadcasts(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		executed []command.Command
	)

	d := command.NewDispatcher(command.WithHandler(command.ActionMute,
		command.HandlerFunc(func(_ context.Context, cmd command.Command) error {
			mu.Lock()
			defer mu.Unlock()

			executed = append(executed, cmd)

			return nil
		}),
	))

	e := engine.New(
		engine.WithRules(mustRules(t, `rule "mute-a" { when tab.url contains "a.com" then mute }`)),
		engine.WithDispatcher(d),
	)

	events := make(chan engine.Event, 8)
	e.Subscribe(events)

	result := e.Run(t.Context(), testSnapshot())

	require.NotNil(t, result)
	assert.Equal(t, 2, result.TotalCommands)
	assert.Len(t, result.Executed, 2)
	assert.Empty(t, result.Errors)

	mu.Lock()
	assert.Len(t, executed, 2)
	mu.Unlock()

	start, ok := (<-events).(engine.RunStart)
	require.True(t, ok)
	assert.Equal(t, 1, start.Rules)
	assert.Equal(t, 3, start.Tabs)

	end, ok := (<-events).(engine.RunEnd)
	require.True(t, ok)
	assert.Same(t, result, end.Result)
}

func TestRun_FullSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	d := command.NewDispatcher(command.WithHandler(command.ActionMute,
		command.HandlerFunc(func(_ context.Context, _ command.Command) error {
			return nil
		}),
	))

	e := engine.New(
		engine.WithRules(mustRules(t, `rule "mute-a" { when tab.url contains "a.com" then mute }`)),
		engine.WithDispatcher(d),
	)

	// Nobody ever reads this channel; events for it are dropped instead of
	// stalling the run.
	e.Subscribe(make(chan engine.Event))

	done := make(chan *command.ExecutionResult, 1)
	go func() {
		done <- e.Run(t.Context(), testSnapshot())
	}()

	select {
	case result := <-done:
		require.NotNil(t, result)
		assert.Len(t, result.Executed, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("run blocked on a full subscriber channel")
	}
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	calls := 0

	e := engine.New(
		engine.WithDispatcher(command.NewDispatcher(command.WithHandler(command.ActionClose,
			command.HandlerFunc(func(_ context.Context, _ command.Command) error {
				calls++

				return nil
			}),
		))),
		engine.WithRules(mustRules(t, `rule "close-b" { when tab.url contains "b.com" then close }`)),
		engine.WithExecuteOptions(command.Options{DryRun: true}),
	)

	result := e.Run(t.Context(), testSnapshot())

	require.Len(t, result.Executed, 1)
	assert.Equal(t, command.StatePreviewed, result.Executed[0].State)
	assert.Zero(t, calls)
}

func TestWatchRuleset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tabs.rules")

	write := func(source string) {
		t.Helper()
		require.NoError(t, os.WriteFile(path, []byte(source), 0o600))
	}

	write(`rule "first" { when tab.url contains "a.com" then mute }`)

	e := engine.New()
	events := make(chan engine.Event, 8)
	e.Subscribe(events)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, e.WatchRuleset(ctx, path))

	write(`
rule "first" { when tab.url contains "a.com" then mute }
rule "second" { when tab.isDupe then close }
`)

	// Editors and os.WriteFile may emit several events per save; wait for a
	// successful reload rather than the first event.
	deadline := time.After(5 * time.Second)

	for {
		select {
		case evt := <-events:
			if reload, ok := evt.(engine.RulesetReload); ok {
				assert.Equal(t, 2, reload.Rules)
				assert.Len(t, e.Rules(), 2)

				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload event")
		}
	}
}

func TestWatchRuleset_BadFileKeepsRules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tabs.rules")
	require.NoError(t, os.WriteFile(path, []byte(`rule "keep" { when tab.id gt 0 then mute }`), 0o600))

	rs := mustRules(t, `rule "keep" { when tab.id gt 0 then mute }`)

	e := engine.New(engine.WithRules(rs))
	events := make(chan engine.Event, 8)
	e.Subscribe(events)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, e.WatchRuleset(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte(`rule "broken" {`), 0o600))

	deadline := time.After(5 * time.Second)

	for {
		select {
		case evt := <-events:
			if _, ok := evt.(engine.RulesetError); ok {
				require.Len(t, e.Rules(), 1)
				assert.Equal(t, "keep", e.Rules()[0].Name)

				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for error event")
		}
	}
}

package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/dsl"
	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

func testSnapshot() *tab.Snapshot {
	return &tab.Snapshot{
		Tabs: []tab.Tab{
			{ID: 1, URL: "https://a.com/x", WindowID: 10},
			{ID: 2, URL: "https://a.com/y", WindowID: 10},
			{ID: 3, URL: "https://b.com/z", WindowID: 20},
		},
	}
}

func TestFactory_PlainFanOut(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "close all",
		Enabled: true,
		Then:    []rule.Action{rule.NewAction("close", nil)},
	}

	cmds := f.Commands(r, snap.Tabs)
	require.Len(t, cmds, 3, "one command per matched tab")

	for i, cmd := range cmds {
		assert.Equal(t, command.ActionClose, cmd.Action)
		assert.Equal(t, []int{snap.Tabs[i].ID}, cmd.TargetIDs)
	}
}

func TestFactory_GroupByDomain(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "tidy",
		Enabled: true,
		Then:    []rule.Action{rule.NewAction("group", map[string]any{"by": "domain"})},
	}

	cmds := f.Commands(r, snap.Tabs)
	require.Len(t, cmds, 2, "one command per domain partition")

	assert.Equal(t, []int{1, 2}, cmds[0].TargetIDs)
	assert.Equal(t, "a.com", cmds[0].Param("key"))
	assert.Equal(t, []int{3}, cmds[1].TargetIDs)
	assert.Equal(t, "b.com", cmds[1].Param("key"))

	assert.Equal(t, command.GroupColor("a.com"), cmds[0].Param("color"),
		"partition color is stable across runs")
	assert.NotEmpty(t, cmds[0].Param("color"))
}

func TestFactory_GroupByWindow(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "by window",
		Enabled: true,
		Then:    []rule.Action{rule.NewAction("group", map[string]any{"by": "window"})},
	}

	cmds := f.Commands(r, snap.Tabs)
	require.Len(t, cmds, 2)
	assert.Equal(t, []int{1, 2}, cmds[0].TargetIDs)
	assert.Equal(t, "10", cmds[0].Param("key"))
	assert.Equal(t, []int{3}, cmds[1].TargetIDs)
}

func TestFactory_PlainGroup(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "one group",
		Enabled: true,
		Then:    []rule.Action{rule.NewAction("group", map[string]any{"name": "Work"})},
	}

	cmds := f.Commands(r, snap.Tabs)
	require.Len(t, cmds, 1, "plain group covers all matches")
	assert.Equal(t, []int{1, 2, 3}, cmds[0].TargetIDs)
	assert.Equal(t, "Work", cmds[0].Param("name"))
}

func TestFactory_SingleTabFlag(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "solo groups",
		Enabled: true,
		Flags:   []string{rule.FlagSingleTab},
		Then:    []rule.Action{rule.NewAction("group", map[string]any{"by": "domain"})},
	}

	cmds := f.Commands(r, snap.Tabs[2:])
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].BoolParam("singleTab"))
	assert.Empty(t, cmds[0].Validate())
}

func TestFactory_MultipleActions(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "pin and mute",
		Enabled: true,
		Then: []rule.Action{
			rule.NewAction("pin", nil),
			rule.NewAction("mute", nil),
		},
	}

	cmds := f.Commands(r, snap.Tabs[:2])
	require.Len(t, cmds, 4)
	assert.Equal(t, command.ActionPin, cmds[0].Action)
	assert.Equal(t, command.ActionPin, cmds[1].Action)
	assert.Equal(t, command.ActionMute, cmds[2].Action)
}

func TestFactory_NoMatches(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	r := rule.Rule{
		Name:    "noop",
		Enabled: true,
		Then:    []rule.Action{rule.NewAction("close", nil)},
	}

	assert.Empty(t, f.Commands(r, nil))
}

func TestFactory_ParsedMoveWithoutIndexValidates(t *testing.T) {
	t.Parallel()

	rules, err := dsl.Parse(`rule "m" { when tab.isDupe then move to window 2 }`)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	snap := testSnapshot()
	f := command.NewFactory(index.Build(snap))

	cmds := f.Commands(rules[0], snap.Tabs)
	require.NotEmpty(t, cmds)

	for _, cmd := range cmds {
		assert.Empty(t, cmd.Validate())
		assert.InDelta(t, -1.0, cmd.Param("index"), 1e-9, "omitted index means end of window")
	}
}

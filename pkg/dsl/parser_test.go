package dsl_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/dsl"
	"github.com/tabmaster/tabmaster/pkg/rule"
)

func TestParse_CloseDuplicates(t *testing.T) {
	t.Parallel()

	r, err := dsl.ParseRule(`rule "Close Duplicates" { when tab.isDupe then close trigger immediate }`)
	require.NoError(t, err)

	assert.Equal(t, "Close Duplicates", r.Name)
	assert.True(t, r.Enabled)

	leaf, ok := r.When.(*rule.Leaf)
	require.True(t, ok, "bare subject is sugar for `is true`")
	assert.Equal(t, rule.OpIs, leaf.Op)
	assert.Equal(t, "tab.isDupe", leaf.Subject.Raw)
	assert.Equal(t, true, leaf.Value)

	require.Len(t, r.Then, 1)
	assert.Equal(t, "close", r.Then[0].Name)

	require.NotNil(t, r.Trigger)
	assert.Equal(t, rule.TriggerImmediate, r.Trigger.Kind)
}

func TestParse_NestedGroups(t *testing.T) {
	t.Parallel()

	src := `
rule "Prune" {
  when all(
    tab.isDupe,
    any(tab.age > 2h, tab.discarded),
    none(window.incognito)
  )
  then close
}`

	r, err := dsl.ParseRule(src)
	require.NoError(t, err)

	g, ok := r.When.(*rule.Group)
	require.True(t, ok)
	assert.Equal(t, rule.GroupAll, g.Kind)
	require.Len(t, g.Children, 3)

	anyGroup, ok := g.Children[1].(*rule.Group)
	require.True(t, ok)
	assert.Equal(t, rule.GroupAny, anyGroup.Kind)
	require.Len(t, anyGroup.Children, 2)

	age, ok := anyGroup.Children[0].(*rule.Leaf)
	require.True(t, ok)
	assert.Equal(t, rule.OpGt, age.Op)
	assert.Equal(t, rule.Duration(2*time.Hour), age.Value)

	noneGroup, ok := g.Children[2].(*rule.Group)
	require.True(t, ok)
	assert.Equal(t, rule.GroupNone, noneGroup.Kind)
}

func TestParse_InfixAndOr(t *testing.T) {
	t.Parallel()

	r, err := dsl.ParseRule(`rule "x" { when tab.isDupe and tab.pinned then close }`)
	require.NoError(t, err)

	g, ok := r.When.(*rule.Group)
	require.True(t, ok)
	assert.Equal(t, rule.GroupAll, g.Kind)
	assert.Len(t, g.Children, 2)

	r, err = dsl.ParseRule(`rule "y" { when tab.muted or tab.audible then unmute }`)
	require.NoError(t, err)

	g, ok = r.When.(*rule.Group)
	require.True(t, ok)
	assert.Equal(t, rule.GroupAny, g.Kind)
}

func TestParse_MixedInfixRejected(t *testing.T) {
	t.Parallel()

	_, err := dsl.ParseRule(`rule "x" { when tab.isDupe and tab.pinned or tab.muted then close }`)
	require.Error(t, err)

	var parseErr *dsl.ParseError

	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Expected, "all()/any()")
}

func TestParse_Actions(t *testing.T) {
	t.Parallel()

	src := `
rule "Tidy" {
  then snooze for 2h wakeInto "Later"
    and group by domain
    and bookmark to "Archive"
    and move to window 2 at 0
}`

	r, err := dsl.ParseRule(src)
	require.NoError(t, err)
	require.Len(t, r.Then, 4)

	snooze := r.Then[0]
	assert.Equal(t, "snooze", snooze.Name)
	assert.Equal(t, rule.Duration(2*time.Hour), snooze.Param("duration"))
	assert.Equal(t, "Later", snooze.StringParam("wakeInto"))

	group := r.Then[1]
	assert.Equal(t, "group", group.Name)
	assert.Equal(t, "domain", group.StringParam("by"))

	bookmark := r.Then[2]
	assert.Equal(t, "bookmark", bookmark.Name)
	assert.Equal(t, "Archive", bookmark.StringParam("folder"))

	move := r.Then[3]
	assert.Equal(t, "move", move.Name)
	assert.InEpsilon(t, 2.0, move.Param("windowId"), 1e-9)
	assert.InDelta(t, 0.0, move.Param("index"), 1e-9)
}

func TestParse_MoveWithoutIndex(t *testing.T) {
	t.Parallel()

	r, err := dsl.ParseRule(`rule "m" { then move to window 3 }`)
	require.NoError(t, err)
	require.Len(t, r.Then, 1)

	move := r.Then[0]
	assert.Equal(t, "move", move.Name)
	assert.InEpsilon(t, 3.0, move.Param("windowId"), 1e-9)
	assert.InDelta(t, -1.0, move.Param("index"), 1e-9, "omitted index means end of window")
}

func TestParse_Triggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want rule.Trigger
	}{
		{
			name: "immediate",
			src:  `rule "x" { then close trigger immediate }`,
			want: rule.Trigger{Kind: rule.TriggerImmediate},
		},
		{
			name: "manual aliases onAction",
			src:  `rule "x" { then close trigger manual }`,
			want: rule.Trigger{Kind: rule.TriggerOnAction},
		},
		{
			name: "repeat every",
			src:  `rule "x" { then close trigger repeat every 30m }`,
			want: rule.Trigger{Kind: rule.TriggerInterval, Every: rule.Duration(30 * time.Minute)},
		},
		{
			name: "once at",
			src:  `rule "x" { then close trigger once at "2026-09-01T09:00:00Z" }`,
			want: rule.Trigger{Kind: rule.TriggerOnce, At: "2026-09-01T09:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := dsl.ParseRule(tt.src)
			require.NoError(t, err)
			require.NotNil(t, r.Trigger)
			assert.Equal(t, tt.want, *r.Trigger)
		})
	}
}

func TestParse_Flags(t *testing.T) {
	t.Parallel()

	r, err := dsl.ParseRule(`rule "x" { then close flags skipPinned bogus singleTab }`)
	require.NoError(t, err)
	assert.Equal(t, []string{"skipPinned", "singleTab"}, r.Flags, "unknown flags dropped")
}

func TestParse_MultipleRules(t *testing.T) {
	t.Parallel()

	src := `
rule "a" { then close }

// Comment between rules.
rule "b" { then pin }
`

	rules, err := dsl.Parse(src)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Name)
	assert.Equal(t, "b", rules[1].Name)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		src          string
		wantExpected string
	}{
		{
			name:         "missing rule name",
			src:          `rule { then close }`,
			wantExpected: "string",
		},
		{
			name:         "bare identifier value",
			src:          `rule "x" { when tab.title == hello then close }`,
			wantExpected: "a value",
		},
		{
			name:         "missing then clause",
			src:          `rule "x" { when tab.isDupe }`,
			wantExpected: "a then clause",
		},
		{
			name:         "empty rule name",
			src:          `rule "" { then close }`,
			wantExpected: "a rule name",
		},
		{
			name:         "unknown action",
			src:          `rule "x" { then explode }`,
			wantExpected: "an action name",
		},
		{
			name:         "duplicate clause",
			src:          `rule "x" { then close then pin }`,
			wantExpected: "different clause",
		},
		{
			name:         "unclosed group",
			src:          `rule "x" { when all(tab.isDupe then close }`,
			wantExpected: ")",
		},
		{
			name:         "bad count metric",
			src:          `rule "x" { when tab.countPerOrigin:path > 1 then close }`,
			wantExpected: "subject path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dsl.Parse(tt.src)
			require.Error(t, err)

			var parseErr *dsl.ParseError

			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, parseErr.Expected, tt.wantExpected)
		})
	}
}

func TestParse_ErrorAbortsWholeDocument(t *testing.T) {
	t.Parallel()

	src := `
rule "good" { then close }
rule "bad" { when tab.title == }
`

	rules, err := dsl.Parse(src)
	require.Error(t, err)
	assert.Nil(t, rules, "no partial rule list on parse failure")
}

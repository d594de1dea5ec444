package rule_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/rule"
)

func TestRule_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"name": "Close Duplicates",
		"when": {"is": ["tab.isDupe", true]},
		"then": [{"action": "close"}],
		"trigger": {"immediate": true}
	}`)

	var r rule.Rule

	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, "Close Duplicates", r.Name)
	assert.True(t, r.Enabled, "enabled defaults to true")

	leaf, ok := r.When.(*rule.Leaf)
	require.True(t, ok)
	assert.Equal(t, rule.OpIs, leaf.Op)
	assert.Equal(t, "tab.isDupe", leaf.Subject.Raw)
	assert.Equal(t, true, leaf.Value)

	require.Len(t, r.Then, 1)
	assert.Equal(t, "close", r.Then[0].Name)

	require.NotNil(t, r.Trigger)
	assert.Equal(t, rule.TriggerImmediate, r.Trigger.Kind)
}

func TestRule_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	when := &rule.Group{
		Kind: rule.GroupAll,
		Children: []rule.Condition{
			mustLeaf(t, rule.OpIs, "tab.isDupe", true),
			mustLeaf(t, rule.OpGte, "tab.countPerOrigin:domain", float64(3)),
			&rule.Group{
				Kind: rule.GroupNone,
				Children: []rule.Condition{
					mustLeaf(t, rule.OpEq, "window.incognito", true),
				},
			},
		},
	}

	r := rule.Rule{
		Name:    "Prune Noise",
		Enabled: true,
		When:    when,
		Then: []rule.Action{
			rule.NewAction("group", map[string]any{"by": "domain"}),
		},
		Trigger: &rule.Trigger{Kind: rule.TriggerInterval, Every: rule.Duration(30 * time.Minute)},
		Flags:   []string{rule.FlagSkipPinned},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got rule.Rule

	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, r.When, got.When)
	assert.Equal(t, r.Then, got.Then)
	assert.Equal(t, r.Trigger, got.Trigger)
	assert.Equal(t, r.Flags, got.Flags)
}

func TestRule_UnknownFlagsDropped(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "x", "then": [{"action": "close"}], "flags": ["skipPinned", "bogus"]}`)

	var r rule.Rule

	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, []string{rule.FlagSkipPinned}, r.Flags)
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		r       rule.Rule
		wantErr bool
	}{
		{
			name: "valid",
			r:    rule.Rule{Name: "x", Then: []rule.Action{rule.NewAction("close", nil)}},
		},
		{
			name:    "missing name",
			r:       rule.Rule{Then: []rule.Action{rule.NewAction("close", nil)}},
			wantErr: true,
		},
		{
			name:    "empty action list",
			r:       rule.Rule{Name: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.r.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUnmarshalCondition_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "two keys", data: `{"all": [], "any": []}`},
		{name: "bad operand count", data: `{"eq": ["tab.url"]}`},
		{name: "bad subject", data: `{"eq": ["tab.a.b", 1]}`},
		{name: "unknown metric", data: `{"gte": ["tab.countPerOrigin:bogus", 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := rule.UnmarshalCondition([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestUnmarshalCondition_UnknownOperatorSurvives(t *testing.T) {
	t.Parallel()

	c, err := rule.UnmarshalCondition([]byte(`{"approx": ["tab.title", "x"]}`))
	require.NoError(t, err)

	leaf, ok := c.(*rule.Leaf)
	require.True(t, ok)
	assert.False(t, leaf.Op.Known())
}

func TestParseSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantKind rule.SubjectKind
		wantErr  bool
	}{
		{name: "tab field", raw: "tab.isDupe", wantKind: rule.SubjectTab},
		{name: "bare field", raw: "pinned", wantKind: rule.SubjectTab},
		{name: "window field", raw: "window.focused", wantKind: rule.SubjectWindow},
		{name: "count metric", raw: "tab.countPerOrigin:dupeKey", wantKind: rule.SubjectCount},
		{name: "empty", raw: "", wantErr: true},
		{name: "deep path", raw: "tab.a.b", wantErr: true},
		{name: "bad metric", raw: "tab.countPerOrigin:path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := rule.ParseSubject(tt.raw)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, s.Kind)
			assert.Equal(t, tt.raw, s.Raw)
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := rule.ParseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, rule.Duration(90*time.Minute), d)
	assert.Equal(t, "90m", d.String())

	d, err = rule.ParseDuration("2h")
	require.NoError(t, err)
	assert.Equal(t, "2h", d.String())

	d, err = rule.ParseDuration("1d")
	require.NoError(t, err)
	assert.Equal(t, "1d", d.String())
	assert.InEpsilon(t, 24*60*60*1000, d.Millis(), 1e-9)

	_, err = rule.ParseDuration("10x")
	require.Error(t, err)
}

func mustLeaf(t *testing.T, op rule.Operator, subject string, v rule.Value) *rule.Leaf {
	t.Helper()

	l, err := rule.NewLeaf(op, subject, v)
	require.NoError(t, err)

	return l
}

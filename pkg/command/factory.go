package command

import (
	"hash/fnv"
	"maps"
	"strconv"

	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

// groupColors is the host tab-group palette. A partition key hashes to the
// same color on every run.
var groupColors = []string{
	"grey", "blue", "red", "yellow", "green", "pink", "purple", "cyan", "orange",
}

// GroupColor deterministically maps a partition key to a palette color.
func GroupColor(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))

	return groupColors[h.Sum32()%uint32(len(groupColors))]
}

// Factory expands rule actions over matched tabs into concrete commands.
type Factory struct {
	ctx *index.Context
}

// NewFactory builds a factory resolving partitions against the given context.
func NewFactory(ctx *index.Context) *Factory {
	return &Factory{ctx: ctx}
}

// Commands expands every action of the rule over the matched tabs, in action
// order. Plain actions fan out one command per tab; grouping actions emit
// one command per partition.
func (f *Factory) Commands(r rule.Rule, matches []tab.Tab) []Command {
	var cmds []Command

	for _, a := range r.Then {
		cmds = append(cmds, f.expand(r, a, matches)...)
	}

	return cmds
}

func (f *Factory) expand(r rule.Rule, a rule.Action, matches []tab.Tab) []Command {
	if len(matches) == 0 {
		return nil
	}

	action := Action(a.Name)
	if action == ActionGroup {
		return f.expandGroup(r, a, matches)
	}

	cmds := make([]Command, 0, len(matches))
	for _, t := range matches {
		cmds = append(cmds, New(action, []int{t.ID}, a.Params))
	}

	return cmds
}

func (f *Factory) expandGroup(r rule.Rule, a rule.Action, matches []tab.Tab) []Command {
	params := maps.Clone(a.Params)
	if params == nil {
		params = map[string]any{}
	}

	if r.HasFlag(rule.FlagSingleTab) {
		params["singleTab"] = true
	}

	switch a.StringParam("by") {
	case "domain":
		return f.partitioned(params, matches, func(t tab.Tab) (string, bool) {
			d, ok := f.ctx.Derived(t.ID)
			if !ok || d.Domain == "" {
				return "", false
			}

			return d.Domain, true
		})

	case "window":
		return f.partitioned(params, matches, func(t tab.Tab) (string, bool) {
			return strconv.Itoa(t.WindowID), true
		})

	default:
		ids := make([]int, 0, len(matches))
		for _, t := range matches {
			ids = append(ids, t.ID)
		}

		return []Command{New(ActionGroup, ids, params)}
	}
}

// partitioned emits one group command per partition, keys in first-seen
// order. Tabs without a key are left out.
func (f *Factory) partitioned(params map[string]any, matches []tab.Tab, keyOf func(tab.Tab) (string, bool)) []Command {
	var order []string

	buckets := map[string][]int{}

	for _, t := range matches {
		key, ok := keyOf(t)
		if !ok {
			continue
		}

		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}

		buckets[key] = append(buckets[key], t.ID)
	}

	cmds := make([]Command, 0, len(order))

	for _, key := range order {
		p := maps.Clone(params)
		p["key"] = key
		p["color"] = GroupColor(key)

		cmds = append(cmds, New(ActionGroup, buckets[key], p))
	}

	return cmds
}

package eval

import (
	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

// Select returns the tabs matching the rule's condition, in snapshot order.
// A rule without a condition matches every tab.
func Select(r rule.Rule, ctx *index.Context) []tab.Tab {
	var matches []tab.Tab

	for _, t := range ctx.Tabs {
		if Evaluate(t, r.When, ctx) {
			matches = append(matches, t)
		}
	}

	return matches
}

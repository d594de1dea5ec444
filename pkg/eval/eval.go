package eval

import (
	"regexp"
	"strings"

	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

// Evaluate reports whether the condition tree holds for one tab. A nil
// condition matches everything.
func Evaluate(t tab.Tab, cond rule.Condition, ctx *index.Context) bool {
	if cond == nil {
		return true
	}

	switch n := cond.(type) {
	case *rule.Group:
		return evalGroup(t, n, ctx)
	case *rule.Leaf:
		return evalLeaf(t, n, ctx)
	default:
		return false
	}
}

func evalGroup(t tab.Tab, g *rule.Group, ctx *index.Context) bool {
	switch g.Kind {
	case rule.GroupAll:
		for _, child := range g.Children {
			if !Evaluate(t, child, ctx) {
				return false
			}
		}

		return true

	case rule.GroupAny:
		for _, child := range g.Children {
			if Evaluate(t, child, ctx) {
				return true
			}
		}

		return false

	case rule.GroupNone:
		for _, child := range g.Children {
			if Evaluate(t, child, ctx) {
				return false
			}
		}

		return true

	default:
		return false
	}
}

func evalLeaf(t tab.Tab, l *rule.Leaf, ctx *index.Context) bool {
	actual, ok := resolve(t, l.Subject, ctx)
	if !ok {
		return false
	}

	return apply(l.Op, actual, l.Value)
}

// resolve looks up the subject's current value for one tab.
func resolve(t tab.Tab, s rule.Subject, ctx *index.Context) (any, bool) {
	switch s.Kind {
	case rule.SubjectCount:
		return float64(ctx.Count(t, s.Metric)), true

	case rule.SubjectWindow:
		w, ok := ctx.Window(t)
		if !ok {
			return nil, false
		}

		return resolveWindowField(w, s.Field)

	case rule.SubjectTab:
		return resolveTabField(t, s.Field, ctx)

	default:
		return nil, false
	}
}

func resolveTabField(t tab.Tab, field string, ctx *index.Context) (any, bool) {
	switch field {
	case "id":
		return float64(t.ID), true
	case "url":
		return t.URL, true
	case "title":
		return t.Title, true
	case "windowId":
		return float64(t.WindowID), true
	case "groupId":
		return float64(t.GroupID), true
	case "pinned", "isPinned":
		return t.Pinned, true
	case "muted", "isMuted":
		return t.Muted, true
	case "audible", "isAudible":
		return t.Audible, true
	case "discarded":
		return t.Discarded, true
	case "active", "isActive":
		return t.Active, true
	case "lastAccessed":
		return float64(t.LastAccessed), true
	case "grouped":
		return t.Grouped(), true
	case "isDupe":
		return ctx.IsDupe(t), true
	case "domainCount":
		return float64(ctx.DomainCount(t)), true
	}

	d, ok := ctx.Derived(t.ID)
	if !ok {
		return nil, false
	}

	switch field {
	case "domain":
		return d.Domain, true
	case "origin":
		return d.Origin, true
	case "dupeKey":
		return d.DupeKey, true
	case "category":
		return d.Categories, true
	case "age":
		// Milliseconds, comparable against duration literals.
		return float64(d.Age.Milliseconds()), true
	default:
		return nil, false
	}
}

func resolveWindowField(w tab.Window, field string) (any, bool) {
	switch field {
	case "id":
		return float64(w.ID), true
	case "focused":
		return w.Focused, true
	case "state":
		return w.State, true
	case "type":
		return w.Type, true
	case "incognito":
		return w.Incognito, true
	default:
		return nil, false
	}
}

// apply runs one operator. Unknown operators resolve to false.
func apply(op rule.Operator, actual any, expected rule.Value) bool {
	switch op {
	case rule.OpEq:
		return looseEq(actual, expected)
	case rule.OpNeq:
		return !looseEq(actual, expected)
	case rule.OpGt:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a > b })
	case rule.OpGte:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a >= b })
	case rule.OpLt:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a < b })
	case rule.OpLte:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a <= b })
	case rule.OpContains:
		return containsFold(actual, expected)
	case rule.OpNotContains:
		return !containsFold(actual, expected)
	case rule.OpStartsWith:
		a, aok := asString(actual)
		b, bok := asString(expected)

		return aok && bok && strings.HasPrefix(a, b)
	case rule.OpEndsWith:
		a, aok := asString(actual)
		b, bok := asString(expected)

		return aok && bok && strings.HasSuffix(a, b)
	case rule.OpRegex:
		return matchRegex(actual, expected)
	case rule.OpIn:
		return membership(actual, expected)
	case rule.OpNotIn:
		return !membership(actual, expected)
	case rule.OpIs:
		return truthy(actual) == truthy(expected)
	case rule.OpIsNot:
		return truthy(actual) != truthy(expected)
	default:
		return false
	}
}

// looseEq compares with numeric coercion so 2 == 2.0 and a duration literal
// equals its millisecond count. Strings compare case-sensitively.
func looseEq(a any, b any) bool {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return af == bf
		}
	}

	if as, aok := asString(a); aok {
		if bs, bok := asString(b); bok {
			return as == bs
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}

	return false
}

func compareNumeric(a any, b any, cmp func(a, b float64) bool) bool {
	af, aok := asNumber(a)
	bf, bok := asNumber(b)

	return aok && bok && cmp(af, bf)
}

// containsFold is case-insensitive. A list subject matches when any element
// equals the expected string, folding case.
func containsFold(actual any, expected rule.Value) bool {
	needle, ok := asString(expected)
	if !ok {
		return false
	}

	switch hay := actual.(type) {
	case []string:
		for _, item := range hay {
			if strings.EqualFold(item, needle) {
				return true
			}
		}

		return false
	default:
		s, ok := asString(actual)
		if !ok {
			return false
		}

		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	}
}

// matchRegex never errors; an invalid pattern simply does not match.
func matchRegex(actual any, expected rule.Value) bool {
	s, ok := asString(actual)
	if !ok {
		return false
	}

	var pattern string

	switch v := expected.(type) {
	case rule.Regex:
		pattern = v.Pattern
		if strings.Contains(v.Flags, "i") {
			pattern = "(?i)" + pattern
		}
	case string:
		pattern = v
	default:
		return false
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	return re.MatchString(s)
}

// membership tests list membership; a non-list expected value degrades to
// plain equality.
func membership(actual any, expected rule.Value) bool {
	list, ok := expected.(rule.List)
	if !ok {
		return looseEq(actual, expected)
	}

	for _, item := range list {
		if looseEq(actual, item) {
			return true
		}
	}

	return false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case rule.List:
		return len(val) > 0
	default:
		if f, ok := asNumber(v); ok {
			return f != 0
		}

		return false
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)

	return s, ok
}

// asNumber coerces numbers and duration literals to float64 milliseconds.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case rule.Duration:
		return n.Millis(), true
	default:
		return 0, false
	}
}

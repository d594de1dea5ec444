package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabmaster/tabmaster/pkg/rule"
)

const indentUnit = "  "

// Format renders a rule document in canonical form. Parsing the result
// yields a structurally equal rule list.
func Format(rules []rule.Rule) string {
	var b strings.Builder

	for i, r := range rules {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(FormatRule(r))
	}

	return b.String()
}

// FormatRule renders one rule block.
func FormatRule(r rule.Rule) string {
	var b strings.Builder

	fmt.Fprintf(&b, "rule %s {\n", strconv.Quote(r.Name))

	if r.When != nil {
		b.WriteString(indentUnit + "when ")
		writeCondition(&b, r.When, 1)
		b.WriteByte('\n')
	}

	if len(r.Then) > 0 {
		b.WriteString(indentUnit + "then ")

		for i, a := range r.Then {
			if i > 0 {
				b.WriteString(" and ")
			}

			b.WriteString(formatAction(a))
		}

		b.WriteByte('\n')
	}

	if r.Trigger != nil {
		b.WriteString(indentUnit + "trigger " + formatTrigger(*r.Trigger) + "\n")
	}

	if len(r.Flags) > 0 {
		b.WriteString(indentUnit + "flags " + strings.Join(r.Flags, " ") + "\n")
	}

	b.WriteString("}\n")

	return b.String()
}

// Negative operators have no DSL surface form; they render as the positive
// operator wrapped in none(...). Only parser-producible ASTs are covered by
// the round-trip guarantee.
var negatedOps = map[rule.Operator]rule.Operator{
	rule.OpNotContains: rule.OpContains,
	rule.OpNotIn:       rule.OpIn,
	rule.OpIsNot:       rule.OpIs,
}

var opWords = map[rule.Operator]string{
	rule.OpEq:         "==",
	rule.OpNeq:        "!=",
	rule.OpGt:         ">",
	rule.OpGte:        ">=",
	rule.OpLt:         "<",
	rule.OpLte:        "<=",
	rule.OpContains:   "contains",
	rule.OpStartsWith: "startsWith",
	rule.OpEndsWith:   "endsWith",
	rule.OpRegex:      "regex",
	rule.OpIn:         "in",
	rule.OpIs:         "is",
}

func writeCondition(b *strings.Builder, c rule.Condition, depth int) {
	switch n := c.(type) {
	case *rule.Leaf:
		b.WriteString(formatLeaf(n))

	case *rule.Group:
		writeGroup(b, n, depth)
	}
}

func writeGroup(b *strings.Builder, g *rule.Group, depth int) {
	b.WriteString(string(g.Kind))
	b.WriteByte('(')

	if len(g.Children) == 0 {
		b.WriteByte(')')

		return
	}

	if inlineGroup(g) {
		for i, child := range g.Children {
			if i > 0 {
				b.WriteString(", ")
			}

			writeCondition(b, child, depth)
		}

		b.WriteByte(')')

		return
	}

	inner := strings.Repeat(indentUnit, depth+1)

	for i, child := range g.Children {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteByte('\n')
		b.WriteString(inner)
		writeCondition(b, child, depth+1)
	}

	b.WriteByte('\n')
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteByte(')')
}

// inlineGroup keeps small flat groups on one line; anything nested or wide
// renders multiline with two-space indentation.
func inlineGroup(g *rule.Group) bool {
	if len(g.Children) > 2 {
		return false
	}

	for _, child := range g.Children {
		if _, ok := child.(*rule.Group); ok {
			return false
		}
	}

	return true
}

func formatLeaf(l *rule.Leaf) string {
	if neg, ok := negatedOps[l.Op]; ok {
		pos := &rule.Leaf{Op: neg, Subject: l.Subject, Value: l.Value}

		return "none(" + formatLeaf(pos) + ")"
	}

	// `is true` round-trips through the bare-subject sugar; `is false`
	// renders as none(subject) since false has no bare-value form.
	if l.Op == rule.OpIs {
		if v, ok := l.Value.(bool); ok {
			if v {
				return l.Subject.Raw
			}

			return "none(" + l.Subject.Raw + ")"
		}
	}

	word, ok := opWords[l.Op]
	if !ok {
		word = string(l.Op)
	}

	return l.Subject.Raw + " " + word + " " + formatValue(l.Value)
}

func formatValue(v rule.Value) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case rule.Duration:
		return val.String()
	case rule.Regex:
		return val.String()
	case rule.List:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}

		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatAction(a rule.Action) string {
	switch a.Name {
	case "snooze":
		s := "snooze for " + formatDurationParam(a.Param("duration"))
		if wake := a.StringParam("wakeInto"); wake != "" {
			s += " wakeInto " + strconv.Quote(wake)
		}

		return s

	case "group":
		if by := a.StringParam("by"); by != "" {
			return "group by " + by
		}

		if name := a.StringParam("name"); name != "" {
			return "group name " + strconv.Quote(name)
		}

		return "group"

	case "bookmark":
		if folder := a.StringParam("folder"); folder != "" {
			return "bookmark to " + strconv.Quote(folder)
		}

		return "bookmark"

	case "move":
		s := "move to window " + formatNumberParam(a.Param("windowId"))
		// -1 is the implied end-of-window position.
		if idx := a.Param("index"); idx != nil && idx != float64(-1) {
			s += " at " + formatNumberParam(idx)
		}

		return s

	default:
		return a.Name
	}
}

func formatTrigger(t rule.Trigger) string {
	switch t.Kind {
	case rule.TriggerImmediate:
		return "immediate"
	case rule.TriggerOnAction:
		return "onAction"
	case rule.TriggerInterval:
		return "repeat every " + t.Every.String()
	case rule.TriggerOnce:
		return "once at " + strconv.Quote(t.At)
	default:
		return string(t.Kind)
	}
}

func formatDurationParam(v any) string {
	switch d := v.(type) {
	case rule.Duration:
		return d.String()
	case float64:
		// Raw milliseconds from the JSON form.
		return rule.MillisDuration(d).String()
	default:
		return "0m"
	}
}

func formatNumberParam(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return "0"
	}
}

package rule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Operator is a leaf predicate operator. The canonical names double as the
// JSON keys of the condition wire form.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpRegex       Operator = "regex"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpIs          Operator = "is"
	OpIsNot       Operator = "is_not"
)

// Known reports whether the operator is part of the closed set. Unknown
// operators survive decoding and evaluate to false.
func (o Operator) Known() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpRegex, OpIn, OpNotIn, OpIs, OpIsNot:
		return true
	}

	return false
}

// GroupKind is the combinator of a condition group.
type GroupKind string

const (
	// GroupAll is boolean AND; an empty group is true.
	GroupAll GroupKind = "all"
	// GroupAny is boolean OR; an empty group is false.
	GroupAny GroupKind = "any"
	// GroupNone is true iff every child is false.
	GroupNone GroupKind = "none"
)

// Condition is one node of a rule's condition tree: either a [*Group]
// combinator or a [*Leaf] predicate.
type Condition interface {
	isCondition()
}

// Group combines child conditions under a boolean combinator.
type Group struct {
	Kind     GroupKind
	Children []Condition
}

func (*Group) isCondition() {}

// Leaf is a single predicate: subject operator value.
type Leaf struct {
	Value   Value
	Subject Subject
	Op      Operator
}

func (*Leaf) isCondition() {}

// NewLeaf builds a leaf condition from a raw subject path.
func NewLeaf(op Operator, subject string, value Value) (*Leaf, error) {
	s, err := ParseSubject(subject)
	if err != nil {
		return nil, err
	}

	return &Leaf{Op: op, Subject: s, Value: value}, nil
}

// MarshalCondition encodes a condition tree into its JSON wire form:
// {"all":[...]}, {"any":[...]}, {"none":[...]}, or {"<op>":[subject, value]}.
func MarshalCondition(c Condition) ([]byte, error) {
	v, err := conditionToWire(c)
	if err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

func conditionToWire(c Condition) (map[string]any, error) {
	switch n := c.(type) {
	case *Group:
		children := make([]any, 0, len(n.Children))

		for _, child := range n.Children {
			w, err := conditionToWire(child)
			if err != nil {
				return nil, err
			}

			children = append(children, w)
		}

		return map[string]any{string(n.Kind): children}, nil

	case *Leaf:
		return map[string]any{string(n.Op): []any{n.Subject.Raw, valueToWire(n.Value)}}, nil
	}

	return nil, fmt.Errorf("unknown condition node %T", c)
}

func valueToWire(v Value) any {
	switch val := v.(type) {
	case Duration:
		return val.Millis()
	case Regex:
		if val.Flags == "" {
			return val.Pattern
		}

		return val.String()
	case List:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, valueToWire(item))
		}

		return out
	default:
		return v
	}
}

// UnmarshalCondition decodes the JSON wire form of a condition tree.
func UnmarshalCondition(data []byte) (Condition, error) {
	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}

	if len(raw) != 1 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		return nil, fmt.Errorf("condition must have exactly one key, got [%s]", strings.Join(keys, " "))
	}

	for key, body := range raw {
		switch GroupKind(key) {
		case GroupAll, GroupAny, GroupNone:
			return unmarshalGroup(GroupKind(key), body)
		}

		return unmarshalLeaf(Operator(key), body)
	}

	return nil, fmt.Errorf("empty condition")
}

func unmarshalGroup(kind GroupKind, body json.RawMessage) (Condition, error) {
	var children []json.RawMessage

	err := json.Unmarshal(body, &children)
	if err != nil {
		return nil, fmt.Errorf("decode %s children: %w", kind, err)
	}

	g := &Group{Kind: kind, Children: make([]Condition, 0, len(children))}

	for _, child := range children {
		c, err := UnmarshalCondition(child)
		if err != nil {
			return nil, err
		}

		g.Children = append(g.Children, c)
	}

	return g, nil
}

func unmarshalLeaf(op Operator, body json.RawMessage) (Condition, error) {
	var pair []json.RawMessage

	err := json.Unmarshal(body, &pair)
	if err != nil {
		return nil, fmt.Errorf("decode %s operands: %w", op, err)
	}

	if len(pair) != 2 {
		return nil, fmt.Errorf("operator %s wants [subject, value], got %d operands", op, len(pair))
	}

	var subjectRaw string

	err = json.Unmarshal(pair[0], &subjectRaw)
	if err != nil {
		return nil, fmt.Errorf("decode %s subject: %w", op, err)
	}

	subject, err := ParseSubject(subjectRaw)
	if err != nil {
		return nil, err
	}

	value, err := wireToValue(op, pair[1])
	if err != nil {
		return nil, err
	}

	return &Leaf{Op: op, Subject: subject, Value: value}, nil
}

func wireToValue(op Operator, data json.RawMessage) (Value, error) {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s value: %w", op, err)
	}

	return anyToValue(op, raw), nil
}

func anyToValue(op Operator, raw any) Value {
	switch v := raw.(type) {
	case []any:
		list := make(List, 0, len(v))
		for _, item := range v {
			list = append(list, anyToValue(op, item))
		}

		return list

	case string:
		if op == OpRegex {
			return parseRegexString(v)
		}

		return v

	default:
		return v
	}
}

// parseRegexString accepts both bare patterns and /pattern/flags literals.
func parseRegexString(s string) Regex {
	if len(s) >= 2 && s[0] == '/' {
		if end := strings.LastIndexByte(s[1:], '/'); end >= 0 {
			return Regex{Pattern: s[1 : end+1], Flags: s[end+2:]}
		}
	}

	return Regex{Pattern: s}
}

package dsl

import (
	"fmt"

	"github.com/tabmaster/tabmaster/pkg/rule"
)

// ParseError reports a grammar mismatch. Any error aborts the whole
// document parse; no partial rule list is returned.
type ParseError struct {
	Expected string
	Actual   string
	Offset   int
	Line     int
	Column   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: expected %s, got %s", e.Line, e.Column, e.Expected, e.Actual)
}

// Word operators; symbolic ones arrive as OPERATOR tokens.
var wordOps = map[string]rule.Operator{
	"in":         rule.OpIn,
	"is":         rule.OpIs,
	"contains":   rule.OpContains,
	"startsWith": rule.OpStartsWith,
	"endsWith":   rule.OpEndsWith,
	"regex":      rule.OpRegex,
}

var symbolOps = map[string]rule.Operator{
	"==": rule.OpEq,
	"!=": rule.OpNeq,
	">=": rule.OpGte,
	"<=": rule.OpLte,
	">":  rule.OpGt,
	"<":  rule.OpLt,
}

// Parse parses a whole rule document. A document is a sequence of
// `rule "<name>" { ... }` blocks.
func Parse(source string) ([]rule.Rule, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	var rules []rule.Rule

	for p.peek().Type != EOF {
		r, err := p.parseRule()
		if err != nil {
			return nil, err
		}

		rules = append(rules, r)
	}

	return rules, nil
}

// ParseRule parses a document containing exactly one rule.
func ParseRule(source string) (rule.Rule, error) {
	rules, err := Parse(source)
	if err != nil {
		return rule.Rule{}, err
	}

	if len(rules) != 1 {
		return rule.Rule{}, fmt.Errorf("expected exactly one rule, got %d", len(rules))
	}

	return rules[0], nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}

	return tok
}

func (p *parser) expect(t TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != t {
		return Token{}, p.errExpected(t.String(), tok)
	}

	return p.next(), nil
}

func (p *parser) errExpected(expected string, actual Token) error {
	return &ParseError{
		Expected: expected,
		Actual:   actual.describe(),
		Offset:   actual.Offset,
		Line:     actual.Line,
		Column:   actual.Column,
	}
}

func (p *parser) parseRule() (rule.Rule, error) {
	r := rule.Rule{Enabled: true}

	if _, err := p.expect(RULE); err != nil {
		return r, err
	}

	name, err := p.expect(STRING)
	if err != nil {
		return r, err
	}

	r.Name = name.Value

	if _, err := p.expect(LBRACE); err != nil {
		return r, err
	}

	seen := map[TokenType]bool{}

	for {
		tok := p.peek()

		switch tok.Type {
		case RBRACE:
			p.next()

			if err := r.Validate(); err != nil {
				if r.Name == "" {
					return r, p.errExpected("a rule name", tok)
				}

				return r, p.errExpected("a then clause", tok)
			}

			return r, nil

		case WHEN, THEN, TRIGGER, FLAGS:
			if seen[tok.Type] {
				return r, p.errExpected("} or a different clause", tok)
			}

			seen[tok.Type] = true

			if err := p.parseClause(&r); err != nil {
				return r, err
			}

		default:
			return r, p.errExpected("when, then, trigger, flags, or }", tok)
		}
	}
}

func (p *parser) parseClause(r *rule.Rule) error {
	switch p.next().Type {
	case WHEN:
		cond, err := p.parseCondition()
		if err != nil {
			return err
		}

		r.When = cond

	case THEN:
		actions, err := p.parseActions()
		if err != nil {
			return err
		}

		r.Then = actions

	case TRIGGER:
		trig, err := p.parseTrigger()
		if err != nil {
			return err
		}

		r.Trigger = trig

	case FLAGS:
		var flags []string
		for p.peek().Type == IDENT {
			flags = append(flags, p.next().Value)
		}

		r.Flags = rule.NormalizeFlags(flags)
	}

	return nil
}

func (p *parser) parseCondition() (rule.Condition, error) {
	switch p.peek().Type {
	case ALL, ANY, NONE:
		return p.parseGroup()
	default:
		return p.parseLeafExpr()
	}
}

func (p *parser) parseGroup() (rule.Condition, error) {
	kw := p.next()

	var kind rule.GroupKind

	switch kw.Type {
	case ALL:
		kind = rule.GroupAll
	case ANY:
		kind = rule.GroupAny
	case NONE:
		kind = rule.GroupNone
	}

	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	g := &rule.Group{Kind: kind}

	for p.peek().Type != RPAREN {
		child, err := p.parseCondition()
		if err != nil {
			return nil, err
		}

		g.Children = append(g.Children, child)

		if p.peek().Type == COMMA {
			p.next()

			continue
		}

		break
	}

	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	return g, nil
}

// parseLeafExpr parses a leaf, optionally joined to further leaves with
// infix and/or, which builds a nested all/any group. Mixing and with or
// without explicit grouping is rejected.
func (p *parser) parseLeafExpr() (rule.Condition, error) {
	first, err := p.parseLeaf()
	if err != nil {
		return nil, err
	}

	joiner := p.peek().Type
	if joiner != AND && joiner != OR {
		return first, nil
	}

	kind := rule.GroupAll
	if joiner == OR {
		kind = rule.GroupAny
	}

	g := &rule.Group{Kind: kind, Children: []rule.Condition{first}}

	for p.peek().Type == AND || p.peek().Type == OR {
		if p.peek().Type != joiner {
			return nil, p.errExpected(fmt.Sprintf("%q (mixing and/or needs all()/any() grouping)", joiner.String()), p.peek())
		}

		p.next()

		leaf, err := p.parseLeaf()
		if err != nil {
			return nil, err
		}

		g.Children = append(g.Children, leaf)
	}

	return g, nil
}

func (p *parser) parseLeaf() (rule.Condition, error) {
	subjectTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}

	subject, err := rule.ParseSubject(subjectTok.Value)
	if err != nil {
		return nil, p.errExpected("a subject path", subjectTok)
	}

	op, ok := p.parseOperator()
	if !ok {
		// Bare subject is sugar for "is true".
		return &rule.Leaf{Op: rule.OpIs, Subject: subject, Value: true}, nil
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	if op == rule.OpRegex {
		if s, isStr := value.(string); isStr {
			value = rule.Regex{Pattern: s}
		}
	}

	return &rule.Leaf{Op: op, Subject: subject, Value: value}, nil
}

func (p *parser) parseOperator() (rule.Operator, bool) {
	tok := p.peek()

	switch tok.Type {
	case OPERATOR:
		if op, ok := symbolOps[tok.Value]; ok {
			p.next()

			return op, true
		}

	case IDENT:
		if op, ok := wordOps[tok.Value]; ok {
			p.next()

			return op, true
		}
	}

	return "", false
}

func (p *parser) parseValue() (rule.Value, error) {
	tok := p.peek()

	switch tok.Type {
	case STRING:
		p.next()

		return tok.Value, nil

	case NUMBER:
		p.next()

		var f float64

		_, err := fmt.Sscanf(tok.Value, "%g", &f)
		if err != nil {
			return nil, p.errExpected("a number", tok)
		}

		return f, nil

	case DURATION:
		p.next()

		d, err := rule.ParseDuration(tok.Value)
		if err != nil {
			return nil, p.errExpected("a duration", tok)
		}

		return d, nil

	case REGEX:
		p.next()

		return parseRegexToken(tok.Value), nil

	case LBRACKET:
		return p.parseArray()

	case IDENT:
		// Only the literal word `true` is a value; anything else here is a
		// grammar mismatch rather than a silent false.
		if tok.Value == "true" {
			p.next()

			return true, nil
		}
	}

	return nil, p.errExpected("a value", tok)
}

func (p *parser) parseArray() (rule.Value, error) {
	if _, err := p.expect(LBRACKET); err != nil {
		return nil, err
	}

	list := rule.List{}

	for p.peek().Type != RBRACKET {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		list = append(list, v)

		if p.peek().Type == COMMA {
			p.next()

			continue
		}

		break
	}

	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}

	return list, nil
}

func parseRegexToken(lit string) rule.Regex {
	// lit is /pattern/flags with the delimiters included.
	end := len(lit) - 1
	for end > 0 && lit[end] != '/' {
		end--
	}

	return rule.Regex{Pattern: lit[1:end], Flags: lit[end+1:]}
}

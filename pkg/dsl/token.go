package dsl

import "fmt"

// TokenType classifies one token of rule source text.
type TokenType int

const (
	// EOF is the end-of-input sentinel, always the last token.
	EOF TokenType = iota

	// Literals.
	IDENT    // dotted identifiers: close, tab.isDupe, tab.countPerOrigin:domain
	STRING   // "quoted", backslash-escaped
	NUMBER   // 42, 3.5, -1
	DURATION // 30m, 2h, 1d
	REGEX    // /pattern/flags

	// OPERATOR covers the symbolic comparison operators: == != >= <= > <.
	// Word operators (in, is, contains, ...) lex as IDENT.
	OPERATOR

	// Punctuation.
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,

	// Keywords.
	RULE
	WHEN
	THEN
	TRIGGER
	FLAGS
	AND
	OR
	ALL
	ANY
	NONE
)

var tokenNames = [...]string{
	EOF:      "EOF",
	IDENT:    "identifier",
	STRING:   "string",
	NUMBER:   "number",
	DURATION: "duration",
	REGEX:    "regex",
	OPERATOR: "operator",
	LBRACE:   "{",
	RBRACE:   "}",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	COMMA:    ",",
	RULE:     "rule",
	WHEN:     "when",
	THEN:     "then",
	TRIGGER:  "trigger",
	FLAGS:    "flags",
	AND:      "and",
	OR:       "or",
	ALL:      "all",
	ANY:      "any",
	NONE:     "none",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && int(t) >= 0 {
		return tokenNames[t]
	}

	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"rule":    RULE,
	"when":    WHEN,
	"then":    THEN,
	"trigger": TRIGGER,
	"flags":   FLAGS,
	"and":     AND,
	"or":      OR,
	"all":     ALL,
	"any":     ANY,
	"none":    NONE,
}

// Token is one lexed token with its source position.
type Token struct {
	Value  string
	Type   TokenType
	Offset int
	Line   int
	Column int
}

// Position returns a line:column string for error reporting.
func (t Token) Position() string {
	return fmt.Sprintf("%d:%d", t.Line, t.Column)
}

func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "EOF"
	case IDENT, STRING, NUMBER, DURATION, REGEX, OPERATOR:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

package dsl

import (
	"fmt"
	"strings"
)

// Character classification lookup tables.
var (
	isDigit      [256]bool
	isIdentStart [256]bool
	isIdentPart  [256]bool
)

func init() {
	for i := range 256 {
		ch := byte(i)
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
}

// LexError reports an unrecognized character and its offset in the source.
type LexError struct {
	Char   byte
	Offset int
	Line   int
	Column int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d:%d: unexpected character %q at offset %d", e.Line, e.Column, e.Char, e.Offset)
}

// Lexer tokenizes rule source text.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
}

// NewLexer creates a lexer over the given source text.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

// Tokenize lexes the whole input, ending with the EOF sentinel. On the first
// unrecognized character it stops and returns a [*LexError].
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)

	tokens := make([]Token, 0, len(input)/4+1)

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// Next returns the next token from the input.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()

	if l.pos >= len(l.input) {
		return l.token(EOF, l.pos, l.pos), nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case isIdentStart[ch]:
		return l.lexIdent(start), nil
	case isDigit[ch], ch == '-' && l.peekDigit():
		return l.lexNumber(start)
	}

	switch ch {
	case '"':
		return l.lexString(start)
	case '/':
		return l.lexRegex(start)
	case '{', '}', '(', ')', '[', ']', ',':
		l.advance()

		return l.token(punctType(ch), start, l.pos), nil
	case '=', '!', '<', '>':
		return l.lexOperator(start)
	}

	return Token{}, &LexError{Char: ch, Offset: l.pos, Line: l.line, Column: l.column}
}

func punctType(ch byte) TokenType {
	switch ch {
	case '{':
		return LBRACE
	case '}':
		return RBRACE
	case '(':
		return LPAREN
	case ')':
		return RPAREN
	case '[':
		return LBRACKET
	case ']':
		return RBRACKET
	default:
		return COMMA
	}
}

func (l *Lexer) token(t TokenType, start, end int) Token {
	value := l.input[start:end]

	return Token{
		Type:   t,
		Value:  value,
		Offset: start,
		Line:   l.line,
		Column: l.column - len(value),
	}
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}

		l.pos++
	}
}

func (l *Lexer) peekDigit() bool {
	return l.pos+1 < len(l.input) && isDigit[l.input[l.pos+1]]
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()

		case ch == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}

		default:
			return
		}
	}
}

// lexIdent scans a dotted identifier. A colon continues the identifier when
// followed by a letter, to admit the tab.countPerOrigin:<metric> form.
func (l *Lexer) lexIdent(start int) Token {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if isIdentPart[ch] {
			l.advance()

			continue
		}

		if (ch == '.' || ch == ':') && l.pos+1 < len(l.input) && isIdentStart[l.input[l.pos+1]] {
			l.advance()

			continue
		}

		break
	}

	tok := l.token(IDENT, start, l.pos)
	if kw, ok := keywords[tok.Value]; ok {
		tok.Type = kw
	}

	return tok
}

// lexNumber scans a number or, when a bare unit suffix follows the digits, a
// duration literal.
func (l *Lexer) lexNumber(start int) (Token, error) {
	if l.input[l.pos] == '-' {
		l.advance()
	}

	for l.pos < len(l.input) && isDigit[l.input[l.pos]] {
		l.advance()
	}

	if l.pos < len(l.input) && l.input[l.pos] == '.' && l.peekDigit() {
		l.advance()

		for l.pos < len(l.input) && isDigit[l.input[l.pos]] {
			l.advance()
		}

		return l.token(NUMBER, start, l.pos), nil
	}

	if l.pos < len(l.input) {
		ch := l.input[l.pos]
		if (ch == 'm' || ch == 'h' || ch == 'd') && !l.identFollows() {
			l.advance()

			return l.token(DURATION, start, l.pos), nil
		}

		if isIdentPart[ch] {
			return Token{}, &LexError{Char: ch, Offset: l.pos, Line: l.line, Column: l.column}
		}
	}

	return l.token(NUMBER, start, l.pos), nil
}

// identFollows reports whether the character after the unit suffix would
// extend an identifier, e.g. "30min" is not a duration literal.
func (l *Lexer) identFollows() bool {
	return l.pos+1 < len(l.input) && isIdentPart[l.input[l.pos+1]]
}

func (l *Lexer) lexString(start int) (Token, error) {
	l.advance() // Opening quote.

	var b strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		switch ch {
		case '"':
			l.advance()

			tok := l.token(STRING, start, l.pos)
			tok.Value = b.String()

			return tok, nil

		case '\\':
			l.advance()

			if l.pos >= len(l.input) {
				break
			}

			esc := l.input[l.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}

			l.advance()

		default:
			b.WriteByte(ch)
			l.advance()
		}
	}

	return Token{}, &LexError{Char: '"', Offset: start, Line: l.line, Column: l.column}
}

// lexRegex scans /pattern/flags. The pattern may contain backslash-escaped
// slashes.
func (l *Lexer) lexRegex(start int) (Token, error) {
	l.advance() // Opening slash.

	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if ch == '\\' {
			l.advance()
			l.advance()

			continue
		}

		if ch == '/' {
			l.advance()

			// Trailing flags.
			for l.pos < len(l.input) && isIdentStart[l.input[l.pos]] {
				l.advance()
			}

			return l.token(REGEX, start, l.pos), nil
		}

		if ch == '\n' {
			break
		}

		l.advance()
	}

	return Token{}, &LexError{Char: '/', Offset: start, Line: l.line, Column: l.column}
}

func (l *Lexer) lexOperator(start int) (Token, error) {
	ch := l.input[l.pos]
	l.advance()

	if l.pos < len(l.input) && l.input[l.pos] == '=' {
		l.advance()

		return l.token(OPERATOR, start, l.pos), nil
	}

	if ch == '=' || ch == '!' {
		// Bare = or ! is not an operator.
		return Token{}, &LexError{Char: ch, Offset: start, Line: l.line, Column: l.column - 1}
	}

	return l.token(OPERATOR, start, l.pos), nil
}

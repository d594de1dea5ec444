package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/dsl"
)

func tokenTypes(tokens []dsl.Token) []dsl.TokenType {
	types := make([]dsl.TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}

	return types
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []dsl.TokenType
	}{
		{
			name:  "rule header",
			input: `rule "Close Duplicates" {`,
			want:  []dsl.TokenType{dsl.RULE, dsl.STRING, dsl.LBRACE, dsl.EOF},
		},
		{
			name:  "dotted subject with operator",
			input: `tab.domain == "a.com"`,
			want:  []dsl.TokenType{dsl.IDENT, dsl.OPERATOR, dsl.STRING, dsl.EOF},
		},
		{
			name:  "count metric path",
			input: `tab.countPerOrigin:domain >= 3`,
			want:  []dsl.TokenType{dsl.IDENT, dsl.OPERATOR, dsl.NUMBER, dsl.EOF},
		},
		{
			name:  "duration literal",
			input: `tab.age > 2h`,
			want:  []dsl.TokenType{dsl.IDENT, dsl.OPERATOR, dsl.DURATION, dsl.EOF},
		},
		{
			name:  "regex literal with flags",
			input: `tab.url regex /news|sports/i`,
			want:  []dsl.TokenType{dsl.IDENT, dsl.IDENT, dsl.REGEX, dsl.EOF},
		},
		{
			name:  "array value",
			input: `tab.domain in ["a.com","b.com"]`,
			want: []dsl.TokenType{
				dsl.IDENT, dsl.IDENT, dsl.LBRACKET,
				dsl.STRING, dsl.COMMA, dsl.STRING,
				dsl.RBRACKET, dsl.EOF,
			},
		},
		{
			name:  "grouping keywords",
			input: `all(any(), none())`,
			want: []dsl.TokenType{
				dsl.ALL, dsl.LPAREN, dsl.ANY, dsl.LPAREN, dsl.RPAREN,
				dsl.COMMA, dsl.NONE, dsl.LPAREN, dsl.RPAREN, dsl.RPAREN, dsl.EOF,
			},
		},
		{
			name:  "line comment skipped",
			input: "close // everything after is ignored\npin",
			want:  []dsl.TokenType{dsl.IDENT, dsl.IDENT, dsl.EOF},
		},
		{
			name:  "negative number",
			input: `tab.groupId == -1`,
			want:  []dsl.TokenType{dsl.IDENT, dsl.OPERATOR, dsl.NUMBER, dsl.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens, err := dsl.Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTypes(tokens))
		})
	}
}

func TestTokenize_Values(t *testing.T) {
	t.Parallel()

	tokens, err := dsl.Tokenize(`rule "A \"B\"" { when tab.url regex /a\/b/gi }`)
	require.NoError(t, err)

	require.Len(t, tokens, 9)
	assert.Equal(t, `A "B"`, tokens[1].Value, "escapes resolved in string value")
	assert.Equal(t, `/a\/b/gi`, tokens[6].Value, "regex literal kept verbatim")
}

func TestTokenize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantOffset int
	}{
		{name: "unknown character", input: "close $", wantOffset: 6},
		{name: "unterminated string", input: `rule "oops`, wantOffset: 5},
		{name: "bad duration unit", input: "tab.age > 30x", wantOffset: 12},
		{name: "lone equals", input: "tab.pinned = true", wantOffset: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dsl.Tokenize(tt.input)
			require.Error(t, err)

			var lexErr *dsl.LexError

			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tt.wantOffset, lexErr.Offset)
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	t.Parallel()

	tokens, err := dsl.Tokenize("rule \"x\" {\n  when tab.isDupe\n}")
	require.NoError(t, err)

	when := tokens[3]
	require.Equal(t, dsl.WHEN, when.Type)
	assert.Equal(t, 2, when.Line)
	assert.Equal(t, 3, when.Column)
}

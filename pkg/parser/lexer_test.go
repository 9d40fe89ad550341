package parser_test

import (
	"testing"

	"github.com/leapstack-labs/leaplineage/pkg/dialects/databricks"
	"github.com/leapstack-labs/leaplineage/pkg/parser"
	"github.com/leapstack-labs/leaplineage/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []token.Token) []token.TokenType {
	types := make([]token.TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.TokenType
	}{
		{
			name:  "simple select",
			input: "SELECT a, b FROM t",
			want:  []token.TokenType{token.SELECT, token.IDENT, token.COMMA, token.IDENT, token.FROM, token.IDENT, token.EOF},
		},
		{
			name:  "operators longest match",
			input: "a <= b <> c != d || e :: f",
			want: []token.TokenType{
				token.IDENT, token.LE, token.IDENT, token.NE, token.IDENT, token.NE,
				token.IDENT, token.DPIPE, token.IDENT, token.DCOLON, token.IDENT, token.EOF,
			},
		},
		{
			name:  "json arrows",
			input: "j -> 'a' ->> 'b'",
			want:  []token.TokenType{token.IDENT, token.ARROW, token.STRING, token.DARROW, token.STRING, token.EOF},
		},
		{
			name:  "named argument arrow",
			input: "f(x => 1)",
			want:  []token.TokenType{token.IDENT, token.LPAREN, token.IDENT, token.FARROW, token.NUMBER, token.RPAREN, token.EOF},
		},
		{
			name:  "comments are skipped",
			input: "SELECT -- line\n a /* block\n comment */ FROM t",
			want:  []token.TokenType{token.SELECT, token.IDENT, token.FROM, token.IDENT, token.EOF},
		},
		{
			name:  "numbers",
			input: "1 2.5 .5 1e10 3E-2",
			want:  []token.TokenType{token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.EOF},
		},
		{
			name:  "placeholder",
			input: "a = ?",
			want:  []token.TokenType{token.IDENT, token.EQ, token.PARAM, token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := parser.Tokenize(tt.input, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTypes(toks))
		})
	}
}

func TestLexerLiterals(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		typ     token.TokenType
		literal string
		quote   rune
	}{
		{"string with escaped quote", "'it''s'", token.STRING, "it's", 0},
		{"quoted identifier", `"My Col"`, token.IDENT, "My Col", '"'},
		{"dollar string", "$$a 'b' c$$", token.STRING, "a 'b' c", 0},
		{"positional column", "$1", token.IDENT, "$1", 0},
		{"stage with path", "@my_stage/path/file.csv", token.IDENT, "@my_stage/path/file.csv", 0},
		{"user stage", "@~", token.IDENT, "@~", 0},
		{"table stage", "@%orders", token.IDENT, "@%orders", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := parser.Tokenize(tt.input, nil)
			require.NoError(t, err)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.typ, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal)
			assert.Equal(t, tt.quote, toks[0].Quote)
		})
	}
}

func TestLexerStageStopsAtDelimiters(t *testing.T) {
	toks, err := parser.Tokenize("FROM @s/dir, x", nil)
	require.NoError(t, err)
	require.Len(t, toks, 5)
	assert.Equal(t, "@s/dir", toks[1].Literal)
	assert.Equal(t, token.COMMA, toks[2].Type)
}

func TestLexerBacktickIdentifiers(t *testing.T) {
	toks, err := parser.Tokenize("SELECT `my col` FROM t", databricks.Databricks)
	require.NoError(t, err)
	require.Equal(t, token.IDENT, toks[1].Type)
	assert.Equal(t, "my col", toks[1].Literal)
	assert.Equal(t, '`', toks[1].Quote)
}

func TestLexerPositions(t *testing.T) {
	toks, err := parser.Tokenize("SELECT a\nFROM t", nil)
	require.NoError(t, err)

	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, token.Position{Line: 1, Column: 8, Offset: 7}, toks[1].Pos)
	assert.Equal(t, 2, toks[2].Pos.Line)
	assert.Equal(t, 1, toks[2].Pos.Column)
	assert.Equal(t, 9, toks[2].Pos.Offset)
	assert.Equal(t, 13, toks[2].End.Offset)
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unterminated string", "SELECT 'abc", parser.ErrUnterminatedString},
		{"unterminated identifier", `SELECT "abc`, parser.ErrUnterminatedIdent},
		{"unterminated comment", "SELECT /* abc", parser.ErrUnterminatedComment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Tokenize(tt.input, nil)
			require.Error(t, err)
			var lexErr *parser.LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tt.want, lexErr.Message)
			assert.Contains(t, err.Error(), "lexer error at line 1")
		})
	}
}

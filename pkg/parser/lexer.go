package parser

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dialect *dialect.Dialect

	// quote characters for identifiers beyond the ANSI double quote
	quoteOpen  byte
	quoteClose byte

	errors []error
}

// NewLexer creates a dialect-aware Lexer for the given input.
// A nil dialect lexes with ANSI rules.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	l := &Lexer{
		input:      input,
		line:       1,
		col:        0,
		dialect:    d,
		quoteOpen:  '"',
		quoteClose: '"',
	}
	if d != nil {
		l.quoteOpen, l.quoteClose = d.QuoteChars()
	}
	l.readChar()
	return l
}

// Errors returns lexical errors found so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()
	tok := l.scan()
	tok.End = l.currentPos()
	return tok
}

func (l *Lexer) scan() token.Token {
	pos := l.currentPos()
	if l.atEOF() {
		return token.Token{Type: token.EOF, Pos: pos}
	}

	switch ch := l.ch; {
	case ch == '\'':
		return token.Token{Type: token.STRING, Literal: l.readQuoted('\'', '\'', pos), Pos: pos}
	case ch == '"':
		return token.Token{Type: token.IDENT, Literal: l.readQuoted('"', '"', pos), Pos: pos, Quote: '"'}
	case ch == l.quoteOpen:
		quote := rune(l.quoteOpen)
		return token.Token{Type: token.IDENT, Literal: l.readQuoted(l.quoteOpen, l.quoteClose, pos), Pos: pos, Quote: quote}
	case ch == '$' && l.peekChar() == '$':
		return token.Token{Type: token.STRING, Literal: l.readDollarString(pos), Pos: pos}
	case ch == '$' && isDigit(l.peekChar()):
		// $1 positional column (Snowflake) or placeholder (Postgres)
		start := l.pos
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.IDENT, Literal: l.input[start:l.pos], Pos: pos}
	case ch == '@' && isStageStart(l.peekChar()):
		return token.Token{Type: token.IDENT, Literal: l.readStage(), Pos: pos}
	case isLetter(ch) || ch == '_':
		return l.readWord(pos)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
	}

	return l.readOperator(pos)
}

// readOperator scans punctuation and operators, longest match first.
func (l *Lexer) readOperator(pos token.Position) token.Token {
	two := ""
	if l.readPos < len(l.input) {
		two = l.input[l.pos : l.readPos+1]
	}
	if l.readPos+1 < len(l.input) && l.input[l.pos:l.readPos+2] == "->>" {
		l.readChar()
		l.readChar()
		l.readChar()
		return token.Token{Type: token.DARROW, Literal: "->>", Pos: pos}
	}

	twoChar := map[string]token.TokenType{
		"::": token.DCOLON,
		"->": token.ARROW,
		"=>": token.FARROW,
		"<=": token.LE,
		">=": token.GE,
		"<>": token.NE,
		"!=": token.NE,
		"==": token.EQ,
		"||": token.DPIPE,
	}
	if t, ok := twoChar[two]; ok {
		l.readChar()
		l.readChar()
		return token.Token{Type: t, Literal: two, Pos: pos}
	}

	oneChar := map[byte]token.TokenType{
		'+': token.PLUS,
		'-': token.MINUS,
		'*': token.STAR,
		'/': token.SLASH,
		'%': token.PERCENT,
		'=': token.EQ,
		'<': token.LT,
		'>': token.GT,
		'.': token.DOT,
		',': token.COMMA,
		';': token.SEMICOLON,
		'(': token.LPAREN,
		')': token.RPAREN,
		'[': token.LBRACKET,
		']': token.RBRACKET,
		'{': token.LBRACE,
		'}': token.RBRACE,
		':': token.COLON,
		'&': token.AMP,
		'|': token.PIPE,
		'^': token.CARET,
		'~': token.TILDE,
		'?': token.PARAM,
	}
	ch := l.ch
	l.readChar()
	if t, ok := oneChar[ch]; ok {
		return token.Token{Type: t, Literal: string(ch), Pos: pos}
	}
	return token.Token{Type: token.ILLEGAL, Literal: string(ch), Pos: pos}
}

// readWord scans an unquoted identifier or keyword.
func (l *Lexer) readWord(pos token.Position) token.Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	literal := l.input[start:l.pos]
	lower := strings.ToLower(literal)

	tok := token.Token{Type: token.LookupIdent(lower), Literal: literal, Pos: pos}
	if tok.Type == token.IDENT && l.dialect != nil {
		if dyn, ok := l.dialect.LookupKeyword(lower); ok {
			tok.Type = dyn
		}
	}
	return tok
}

// skipWhitespaceAndComments skips whitespace, -- line comments and /* */ block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		switch {
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			pos := l.currentPos()
			l.readChar()
			l.readChar()
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.errors = append(l.errors, &LexError{Pos: pos, Message: ErrUnterminatedComment})
			}
		default:
			return
		}
	}
}

// readQuoted reads a string literal or quoted identifier.
// A doubled closing quote is an escaped quote: 'it''s' -> it's
func (l *Lexer) readQuoted(_, closing byte, pos token.Position) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == closing {
			if l.peekChar() == closing {
				result.WriteByte(closing)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	msg := ErrUnterminatedString
	if closing != '\'' {
		msg = ErrUnterminatedIdent
	}
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
	return result.String()
}

// readDollarString reads a $$ ... $$ string body.
func (l *Lexer) readDollarString(pos token.Position) string {
	l.readChar()
	l.readChar()
	start := l.pos
	for !l.atEOF() {
		if l.ch == '$' && l.peekChar() == '$' {
			body := l.input[start:l.pos]
			l.readChar()
			l.readChar()
			return body
		}
		l.readChar()
	}
	l.errors = append(l.errors, &LexError{Pos: pos, Message: ErrUnterminatedString})
	return l.input[start:l.pos]
}

// readStage reads a stage reference such as @db.schema.stage/path/file.csv.
func (l *Lexer) readStage() string {
	start := l.pos
	for !l.atEOF() && !isStageTerminator(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && (isDigit(l.peekChar()) || !isLetter(l.peekChar())) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true for ASCII letters and any byte of a multi-byte UTF-8 sequence.
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isStageStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch == '~' || ch == '%' || ch == '"'
}

func isStageTerminator(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', ',', '(', ')', ';':
		return true
	}
	return false
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string, d *dialect.Dialect) ([]token.Token, error) {
	l := NewLexer(input, d)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(l.errors) > 0 {
		return tokens, l.errors[0]
	}
	return tokens, nil
}

// Package parser provides dialect-aware SQL parsing into the pkg/core AST.
//
// # Usage
//
//	d, _ := dialect.Lookup("snowflake")
//	stmt, err := parser.Parse("INSERT INTO t SELECT a FROM s", d)
//	if err != nil {
//	    // handle error
//	}
//
// Scripts with several statements are parsed with ParseAll, which stops at
// the first error, or ParseEach, which reports one result per statement
// and keeps going after a failed statement.
//
// # Grammar Overview
//
// The parser is a recursive descent parser with a Pratt expression parser:
//
//	script        → statement (";" statement)* [";"]
//	statement     → query | insert | update | delete | merge
//	              | create | alter | drop | truncate | copy | raw
//	query         → [WITH cte_list] set_expr [ORDER BY ...] [LIMIT ...]
//
// The grammar is deliberately permissive: it accepts the union of the
// supported dialects and only needs to be exact where lineage depends on it.
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer   *Lexer
	src     string
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	prev    token.Token // last consumed token
	errors  []error
	dialect *dialect.Dialect

	// noColonPath disables col:path parsing inside slice brackets.
	noColonPath bool
}

// NewParser creates a new parser for the given SQL input.
// A nil dialect parses with the registry's default dialect.
func NewParser(sql string, d *dialect.Dialect) *Parser {
	if d == nil {
		d, _ = dialect.Lookup("")
	}
	p := &Parser{
		lexer:   NewLexer(sql, d),
		src:     sql,
		dialect: d,
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses exactly one statement. A trailing semicolon is allowed.
func Parse(sql string, d *dialect.Dialect) (core.Stmt, error) {
	p := NewParser(sql, d)
	stmt, err := p.parseOne()
	if err != nil {
		return nil, err
	}
	for p.match(token.SEMICOLON) {
	}
	if !p.check(token.EOF) {
		return nil, &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf(ErrTrailingInput, describe(p.token))}
	}
	return stmt, nil
}

// ParseAll parses a ;-separated script and stops at the first error.
func ParseAll(sql string, d *dialect.Dialect) ([]core.Stmt, error) {
	var stmts []core.Stmt
	for _, r := range ParseEach(sql, d) {
		if r.Err != nil {
			return nil, r.Err
		}
		stmts = append(stmts, r.Stmt)
	}
	return stmts, nil
}

// Result is the outcome of parsing one statement of a script.
type Result struct {
	Stmt core.Stmt
	// Text is the statement's source text without the trailing semicolon.
	Text  string
	Span  token.Span
	Index int
	Err   error
}

// ParseEach parses a ;-separated script into one Result per statement.
// A statement that fails to parse is reported with its error and parsing
// resumes after the next semicolon.
func ParseEach(sql string, d *dialect.Dialect) []Result {
	p := NewParser(sql, d)
	var results []Result
	for {
		for p.match(token.SEMICOLON) {
		}
		if p.check(token.EOF) {
			break
		}

		start := p.token.Pos
		stmt, err := p.parseOne()
		if err == nil && !p.check(token.SEMICOLON) && !p.check(token.EOF) {
			err = &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf(ErrExpectedStatement, describe(p.token))}
		}
		if err != nil {
			p.skipStatement()
			stmt = nil
		}

		span := token.Span{Start: start, End: p.prev.End}
		results = append(results, Result{
			Stmt:  stmt,
			Text:  strings.TrimSpace(span.Text(sql)),
			Span:  span,
			Index: len(results),
			Err:   err,
		})
	}
	return results
}

// Dialect returns the parser's dialect.
func (p *Parser) Dialect() *dialect.Dialect {
	return p.dialect
}

// parseOne parses a single statement, converting a bailout into an error.
func (p *Parser) parseOne() (stmt core.Stmt, err error) {
	p.errors = nil
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmt = nil
			err = p.firstError()
		}
	}()

	start := p.token.Pos
	stmt = p.parseStatement()
	if err := p.lexErrorIn(start); err != nil {
		return nil, err
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

func (p *Parser) firstError() error {
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	return nil
}

// lexErrorIn returns the first lexical error between start and the last
// consumed token. Errors further ahead belong to later statements.
func (p *Parser) lexErrorIn(start token.Position) error {
	for _, err := range p.lexer.Errors() {
		le, ok := err.(*LexError)
		if !ok {
			continue
		}
		if le.Pos.Offset >= start.Offset && le.Pos.Offset <= p.prev.End.Offset {
			return le
		}
	}
	return nil
}

// skipStatement discards tokens up to the next top-level semicolon.
func (p *Parser) skipStatement() {
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				return
			}
		}
		p.nextToken()
	}
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prev = p.token
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise fails the statement.
func (p *Parser) expect(t token.TokenType) {
	if p.check(t) {
		p.nextToken()
		return
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
}

// addError records a parse error and abandons the current statement.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
	panic(bailout{})
}

// ---------- Word Helpers ----------

// isWord reports whether tok is the unquoted word name, whatever token
// type the active dialect assigned to it.
func isWord(tok token.Token, name string) bool {
	if tok.IsQuoted() || tok.Type == token.STRING || tok.Type == token.NUMBER {
		return false
	}
	return strings.EqualFold(tok.Literal, name)
}

// checkWord reports whether the current token is the given word.
func (p *Parser) checkWord(name string) bool {
	return isWord(p.token, name)
}

// matchWord consumes the current token if it is the given word.
func (p *Parser) matchWord(name string) bool {
	if p.checkWord(name) {
		p.nextToken()
		return true
	}
	return false
}

// expectWord consumes the given word or fails the statement.
func (p *Parser) expectWord(name string) {
	if !p.matchWord(name) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), name))
	}
}

// nonReserved are builtin keywords that may still name columns and tables.
var nonReserved = map[token.TokenType]bool{
	token.FIRST:     true,
	token.LAST:      true,
	token.RANGE:     true,
	token.ROWS:      true,
	token.ROW:       true,
	token.GROUPS:    true,
	token.FILTER:    true,
	token.CURRENT:   true,
	token.PRECEDING: true,
	token.FOLLOWING: true,
	token.UNBOUNDED: true,
	token.NULLS:     true,
	token.PARTITION: true,
	token.RECURSIVE: true,
	token.VIEW:      true,
	token.WITHIN:    true,
}

// isIdentToken reports whether tok can be used as an identifier.
func isIdentToken(tok token.Token) bool {
	return tok.Type == token.IDENT || nonReserved[tok.Type] || token.IsDynamic(tok.Type)
}

// noImplicitAlias are words that continue a FROM item or a query and are
// therefore never read as an alias written without AS.
var noImplicitAlias = map[string]bool{
	"PIVOT": true, "UNPIVOT": true, "SAMPLE": true, "TABLESAMPLE": true,
	"ASOF": true, "SEMI": true, "ANTI": true, "POSITIONAL": true,
	"MINUS": true, "QUALIFY": true, "FETCH": true, "RETURNING": true,
	"CHANGES": true, "AT": true, "BEFORE": true, "MATCH_RECOGNIZE": true,
	"START": true, "CONNECT": true, "WINDOW": true, "LIMIT": true,
	"OFFSET": true, "CLONE": true,
}

// canImplicitAlias reports whether the current token may start an alias written without AS.
func (p *Parser) canImplicitAlias() bool {
	if p.token.IsQuoted() {
		return true
	}
	if !isIdentToken(p.token) || token.IsDynamic(p.token.Type) {
		return false
	}
	return !noImplicitAlias[strings.ToUpper(p.token.Literal)]
}

// ---------- Identifier Helpers ----------

// parseIdent parses a single identifier.
func (p *Parser) parseIdent() core.Ident {
	if !isIdentToken(p.token) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
	}
	id := core.Ident{Value: p.token.Literal, Quote: p.token.Quote}
	p.nextToken()
	return id
}

// parseObjectName parses a dotted name: [catalog "."] [schema "."] identifier.
// Empty middle parts (db..table) are kept as empty identifiers.
func (p *Parser) parseObjectName() core.ObjectName {
	name := core.ObjectName{p.parseIdent()}
	for p.check(token.DOT) {
		p.nextToken()
		if p.check(token.DOT) {
			name = append(name, core.Ident{})
			continue
		}
		name = append(name, p.parseIdent())
	}
	return name
}

// parseIdentList parses "(" identifier ("," identifier)* ")".
func (p *Parser) parseIdentList() []core.Ident {
	p.expect(token.LPAREN)
	var ids []core.Ident
	for {
		ids = append(ids, p.parseIdent())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return ids
}

// parseOptionalAlias parses [AS] alias.
func (p *Parser) parseOptionalAlias() core.Ident {
	if p.match(token.AS) {
		return p.parseIdent()
	}
	if p.canImplicitAlias() {
		return p.parseIdent()
	}
	return core.Ident{}
}

// ---------- Span Helpers ----------

// span returns the span from start to the end of the last consumed token.
func (p *Parser) span(start token.Position) token.Span {
	return token.Span{Start: start, End: p.prev.End}
}

// info returns NodeInfo covering start to the last consumed token.
func (p *Parser) info(start token.Position) core.NodeInfo {
	return core.NodeInfo{Span: p.span(start)}
}

// textFrom returns the source text from start to the last consumed token.
func (p *Parser) textFrom(start token.Position) string {
	return strings.TrimSpace(p.span(start).Text(p.src))
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "EOF"
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	case token.STRING:
		return fmt.Sprintf("STRING '%s'", tok.Literal)
	}
	return tok.Type.String()
}

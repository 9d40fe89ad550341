package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | param | column_ref | star | func_call | paren_expr
//	              | case_expr | cast_expr | exists_expr | special_func
//	              | array_expr | struct_expr | interval_expr | typed_literal
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	param         → "?" | ":" identifier
//	column_ref    → [[catalog "."] schema "."] [table "."] column
//	star          → [name "."] "*"
//	func_call     → name "(" [DISTINCT|ALL] ["*" | arg_list [ORDER BY order_list]] ")"
//	                [WITHIN GROUP "(" ORDER BY order_list ")"]
//	                [FILTER "(" WHERE expr ")"] [(IGNORE|RESPECT) NULLS]
//	                [OVER window_spec]
//	arg           → [identifier "=>"] expr

// niladicFunctions are functions called without parentheses.
var niladicFunctions = map[string]bool{
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
	"CURRENT_TIMESTAMP": true,
	"CURRENT_USER":      true,
	"CURRENT_ROLE":      true,
	"CURRENT_SCHEMA":    true,
	"CURRENT_DATABASE":  true,
	"SESSION_USER":      true,
	"LOCALTIME":         true,
	"LOCALTIMESTAMP":    true,
	"SYSDATE":           true,
}

// typedLiteralWords prefix a string to form a typed literal: DATE '2024-01-01'.
var typedLiteralWords = map[string]bool{
	"DATE":        true,
	"TIME":        true,
	"TIMESTAMP":   true,
	"TIMESTAMPTZ": true,
	"DATETIME":    true,
	"JSON":        true,
}

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() core.Expr {
	start := p.token.Pos

	switch p.token.Type {
	case token.NUMBER:
		return p.parseLiteral(core.LiteralNumber)

	case token.STRING:
		return p.parseLiteral(core.LiteralString)

	case token.TRUE, token.FALSE:
		return p.parseLiteral(core.LiteralBool)

	case token.NULL:
		return p.parseLiteral(core.LiteralNull)

	case token.PARAM:
		return p.parseLiteral(core.LiteralParam)

	case token.COLON:
		// :name bind parameter
		if isIdentToken(p.peek) || p.peek.Type == token.NUMBER {
			p.nextToken()
			lit := &core.Literal{Type: core.LiteralParam, Value: ":" + p.token.Literal}
			p.nextToken()
			lit.NodeInfo = p.info(start)
			return lit
		}

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr(false)

	case token.EXISTS:
		return p.parseExistsExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.LBRACKET:
		return p.parseArrayLiteral(start)

	case token.LBRACE:
		return p.parseStructExpr()

	case token.STAR:
		p.nextToken()
		return &core.StarExpr{NodeInfo: p.info(start)}

	case token.LEFT, token.RIGHT:
		// LEFT(s, n) and RIGHT(s, n) string functions
		if p.checkPeek(token.LPAREN) {
			name := core.ObjectName{core.NewIdent(p.token.Literal)}
			p.nextToken()
			return p.parseFuncCall(start, name)
		}
	}

	if isIdentToken(p.token) {
		return p.parseIdentifierExpr()
	}

	p.addError(fmt.Sprintf(ErrExpectedExpression, describe(p.token)))
	return nil
}

// parseLiteral consumes the current token as a literal of the given type.
func (p *Parser) parseLiteral(typ core.LiteralType) *core.Literal {
	start := p.token.Pos
	lit := &core.Literal{Type: typ, Value: p.token.Literal}
	p.nextToken()
	lit.NodeInfo = p.info(start)
	return lit
}

// parseIdentifierExpr parses an identifier which could be a column ref,
// a function call, a special form or a typed literal.
func (p *Parser) parseIdentifierExpr() core.Expr {
	start := p.token.Pos

	if !p.token.IsQuoted() {
		word := strings.ToUpper(p.token.Literal)
		if p.checkPeek(token.LPAREN) {
			if expr := p.parseSpecialFunc(start, word); expr != nil {
				return expr
			}
		}
		switch {
		case word == "INTERVAL" && (p.peek.Type == token.STRING || p.peek.Type == token.NUMBER || p.peek.Type == token.LPAREN):
			return p.parseInterval()
		case word == "ARRAY" && p.checkPeek(token.LBRACKET):
			p.nextToken()
			return p.parseArrayLiteral(start)
		case typedLiteralWords[word] && p.peek.Type == token.STRING:
			p.nextToken()
			lit := p.parseLiteral(core.LiteralString)
			return &core.CastExpr{NodeInfo: p.info(start), Expr: lit, TypeName: word}
		case niladicFunctions[word] && !p.checkPeek(token.LPAREN) && !p.checkPeek(token.DOT):
			p.nextToken()
			return &core.FuncCall{NodeInfo: p.info(start), Name: core.ObjectName{core.NewIdent(word)}}
		}
	}

	name := core.ObjectName{p.parseIdent()}
	for p.check(token.DOT) {
		p.nextToken()
		// t.* or schema.t.*
		if p.match(token.STAR) {
			return &core.StarExpr{NodeInfo: p.info(start), Table: name}
		}
		name = append(name, p.parseIdent())
	}

	// Function call
	if p.check(token.LPAREN) {
		return p.parseFuncCall(start, name)
	}

	return &core.ColumnRef{
		NodeInfo:  p.info(start),
		Qualifier: name[:len(name)-1],
		Column:    name[len(name)-1],
	}
}

// parseFuncCall parses a function call after its name.
func (p *Parser) parseFuncCall(start token.Position, name core.ObjectName) *core.FuncCall {
	fn := &core.FuncCall{Name: name}

	p.expect(token.LPAREN)

	switch {
	case p.check(token.STAR) && p.checkPeek(token.RPAREN):
		// COUNT(*) or other aggregate(*)
		fn.Star = true
		p.nextToken()
	case !p.check(token.RPAREN):
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		} else {
			p.match(token.ALL)
		}
		fn.Args = p.parseFuncArgs()
		if p.check(token.ORDER) && p.checkPeek(token.BY) {
			p.nextToken()
			p.nextToken()
			fn.OrderBy = p.parseOrderByList()
		}
		p.skipNullTreatment()
		if p.check(token.LIMIT) {
			// ARRAY_AGG(x ORDER BY y LIMIT n)
			p.nextToken()
			p.parseExpression()
		}
	}

	p.expect(token.RPAREN)
	p.parseFuncSuffix(fn)

	fn.NodeInfo = p.info(start)
	return fn
}

// parseFuncArgs parses function arguments, including named arguments.
func (p *Parser) parseFuncArgs() []core.Expr {
	var args []core.Expr
	for {
		// name => value
		if isIdentToken(p.token) && p.checkPeek(token.FARROW) {
			p.nextToken()
			p.nextToken()
		}
		args = append(args, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return args
}

// parseFuncSuffix parses WITHIN GROUP, FILTER, null treatment and OVER after a call.
func (p *Parser) parseFuncSuffix(fn *core.FuncCall) {
	if p.check(token.WITHIN) && p.checkPeek(token.GROUP) {
		p.nextToken()
		p.nextToken()
		p.expect(token.LPAREN)
		p.expect(token.ORDER)
		p.expect(token.BY)
		fn.WithinGroup = p.parseOrderByList()
		p.expect(token.RPAREN)
	}

	// FILTER clause (for aggregates)
	if p.check(token.FILTER) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.expect(token.LPAREN)
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}

	p.skipNullTreatment()

	// OVER clause (window function)
	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
	}
}

// skipNullTreatment skips IGNORE NULLS / RESPECT NULLS.
func (p *Parser) skipNullTreatment() {
	if (p.checkWord("IGNORE") || p.checkWord("RESPECT")) && p.checkPeek(token.NULLS) {
		p.nextToken()
		p.nextToken()
	}
}

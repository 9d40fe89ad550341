package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Special expression parsing: CASE, CAST, EXISTS, parenthesized expressions,
// subqueries, collection literals, INTERVAL and functions with keyword syntax.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → (CAST | TRY_CAST | SAFE_CAST) "(" expr AS type_name ")"
//	exists_expr   → EXISTS "(" query ")"
//	paren_expr    → "(" query ")" | "(" expr_list ")" | "(" ")"
//	array_expr    → [ARRAY] "[" [expr_list] "]" | ARRAY "(" query ")"
//	struct_expr   → "{" [key ":" expr ("," key ":" expr)*] "}"
//	interval_expr → INTERVAL (STRING | NUMBER | paren_expr) [unit [TO unit]]
//	extract       → EXTRACT "(" field FROM expr ")"
//	position      → POSITION "(" expr IN expr ")"
//	substring     → SUBSTRING "(" expr [FROM expr] [FOR expr] ")"
//	trim          → TRIM "(" [BOTH|LEADING|TRAILING] [expr] [FROM expr] ")"
//	type_name     → word+ ["(" ... ")"] ["<" ... ">"] ("[" "]")*

// intervalUnits are the units accepted after an INTERVAL value.
var intervalUnits = map[string]bool{
	"YEAR": true, "YEARS": true, "QUARTER": true, "MONTH": true, "MONTHS": true,
	"WEEK": true, "WEEKS": true, "DAY": true, "DAYS": true, "HOUR": true,
	"HOURS": true, "MINUTE": true, "MINUTES": true, "SECOND": true, "SECONDS": true,
	"MILLISECOND": true, "MILLISECONDS": true, "MICROSECOND": true, "MICROSECONDS": true,
}

// typeNameWords continue a multi-word type name: DOUBLE PRECISION,
// CHARACTER VARYING, TIMESTAMP WITH TIME ZONE.
var typeNameWords = map[string]bool{
	"PRECISION": true, "VARYING": true, "WITHOUT": true, "TIME": true,
	"ZONE": true, "LOCAL": true, "UNSIGNED": true,
}

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.CASE)
	caseExpr := &core.CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	// WHEN clauses
	for p.match(token.WHEN) {
		when := core.WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	// ELSE clause
	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(token.END)
	caseExpr.NodeInfo = p.info(start)
	return caseExpr
}

// parseCastExpr parses CAST, TRY_CAST or SAFE_CAST.
func (p *Parser) parseCastExpr(try bool) core.Expr {
	start := p.token.Pos
	p.nextToken() // CAST / TRY_CAST
	p.expect(token.LPAREN)

	cast := &core.CastExpr{Try: try}
	cast.Expr = p.parseExpression()
	p.expect(token.AS)

	// Parse type name (can be qualified with parameters like VARCHAR(255))
	cast.TypeName = p.parseTypeName()
	if p.matchWord("FORMAT") {
		p.parseExpression()
	}

	p.expect(token.RPAREN)
	cast.NodeInfo = p.info(start)
	return cast
}

// parseTypeName parses a type name and returns its source text.
func (p *Parser) parseTypeName() string {
	start := p.token.Pos
	if !isIdentToken(p.token) && !token.IsKeyword(p.token.Type) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
	}
	first := strings.ToUpper(p.token.Literal)
	p.nextToken()

	for {
		switch {
		case p.check(token.DOT) && isIdentToken(p.peek):
			p.nextToken()
			p.nextToken()
		case p.check(token.LPAREN):
			p.skipParens()
		case p.check(token.LT) && (first == "ARRAY" || first == "MAP" || first == "STRUCT"):
			p.skipAngles()
		case p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET):
			p.nextToken()
			p.nextToken()
		case p.check(token.WITH) && isWord(p.peek, "TIME"):
			p.nextToken()
		case !p.token.IsQuoted() && typeNameWords[strings.ToUpper(p.token.Literal)] && isIdentToken(p.token):
			p.nextToken()
		default:
			return p.textFrom(start)
		}
	}
}

// skipAngles skips a balanced <...> group of a parameterized type: ARRAY<STRUCT<a INT>>.
func (p *Parser) skipAngles() {
	depth := 0
	for {
		switch p.token.Type {
		case token.EOF:
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.GT))
		case token.LT:
			depth++
		case token.GT:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			return
		}
	}
}

// parseParenExpr parses a parenthesized expression, tuple, or subquery.
func (p *Parser) parseParenExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.LPAREN)

	// Subquery expression (scalar subquery in SELECT, or in WHERE/HAVING)
	if isQueryStart(p.token) || (p.check(token.LPAREN) && isQueryStart(p.peek)) {
		sub := &core.SubqueryExpr{Select: p.parseQuery()}
		p.expect(token.RPAREN)
		sub.NodeInfo = p.info(start)
		return sub
	}

	// Empty tuple: GROUPING SETS (())
	if p.match(token.RPAREN) {
		return &core.TupleExpr{NodeInfo: p.info(start)}
	}

	exprs := p.parseExpressionList()
	p.expect(token.RPAREN)

	if len(exprs) == 1 {
		return &core.ParenExpr{NodeInfo: p.info(start), Expr: exprs[0]}
	}
	return &core.TupleExpr{NodeInfo: p.info(start), Items: exprs}
}

// parseExistsExpr parses an EXISTS expression.
func (p *Parser) parseExistsExpr() core.Expr {
	start := p.token.Pos
	p.nextToken() // EXISTS

	p.expect(token.LPAREN)
	exists := &core.ExistsExpr{Select: p.parseQuery()}
	p.expect(token.RPAREN)

	exists.NodeInfo = p.info(start)
	return exists
}

// parseArrayLiteral parses [a, b, c] after an optional ARRAY keyword.
func (p *Parser) parseArrayLiteral(start token.Position) core.Expr {
	p.expect(token.LBRACKET)
	arr := &core.ArrayExpr{}
	if !p.check(token.RBRACKET) {
		arr.Items = p.parseExpressionList()
	}
	p.expect(token.RBRACKET)
	arr.NodeInfo = p.info(start)
	return arr
}

// parseStructExpr parses a struct literal: {'a': 1, b: x}.
func (p *Parser) parseStructExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.LBRACE)

	st := &core.StructExpr{}
	for !p.check(token.RBRACE) {
		if p.token.Type != token.STRING && !isIdentToken(p.token) {
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		}
		field := core.StructField{Key: p.token.Literal}
		p.nextToken()
		p.expect(token.COLON)
		field.Value = p.parseExpression()
		st.Fields = append(st.Fields, field)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)

	st.NodeInfo = p.info(start)
	return st
}

// parseInterval parses INTERVAL value [unit [TO unit]].
func (p *Parser) parseInterval() core.Expr {
	start := p.token.Pos
	p.nextToken() // INTERVAL

	interval := &core.IntervalExpr{Value: p.parsePrimary()}
	if !p.token.IsQuoted() && intervalUnits[strings.ToUpper(p.token.Literal)] {
		unit := strings.ToUpper(p.token.Literal)
		p.nextToken()
		if p.checkWord("TO") && intervalUnits[strings.ToUpper(p.peek.Literal)] {
			p.nextToken()
			unit += " TO " + strings.ToUpper(p.token.Literal)
			p.nextToken()
		}
		interval.Unit = unit
	}

	interval.NodeInfo = p.info(start)
	return interval
}

// parseSpecialFunc parses functions with keyword argument syntax. It
// returns nil when word is an ordinary function.
func (p *Parser) parseSpecialFunc(start token.Position, word string) core.Expr {
	switch word {
	case "TRY_CAST", "SAFE_CAST":
		return p.parseCastExpr(true)
	case "ARRAY":
		if !isQueryStart(p.peek2) {
			return nil
		}
		p.nextToken()
		p.expect(token.LPAREN)
		arr := &core.ArrayExpr{Query: p.parseQuery()}
		p.expect(token.RPAREN)
		arr.NodeInfo = p.info(start)
		return arr
	case "EXTRACT":
		return p.parseKeywordArgs(start, func(fn *core.FuncCall) {
			fieldStart := p.token.Pos
			field := strings.ToUpper(p.token.Literal)
			p.nextToken()
			fn.Args = append(fn.Args, &core.Literal{NodeInfo: p.info(fieldStart), Type: core.LiteralString, Value: field})
			if !p.match(token.FROM) {
				p.expect(token.COMMA)
			}
			fn.Args = append(fn.Args, p.parseExpression())
		})
	case "POSITION":
		return p.parseKeywordArgs(start, func(fn *core.FuncCall) {
			fn.Args = append(fn.Args, p.parseExpressionWithPrecedence(precComparison+1))
			if !p.match(token.IN) {
				p.expect(token.COMMA)
			}
			fn.Args = append(fn.Args, p.parseExpression())
		})
	case "SUBSTRING", "SUBSTR":
		return p.parseKeywordArgs(start, func(fn *core.FuncCall) {
			fn.Args = append(fn.Args, p.parseExpression())
			for {
				switch {
				case p.match(token.FROM), p.matchWord("FOR"), p.match(token.COMMA):
					fn.Args = append(fn.Args, p.parseExpression())
				default:
					return
				}
			}
		})
	case "TRIM":
		return p.parseKeywordArgs(start, func(fn *core.FuncCall) {
			if p.matchWord("BOTH") || p.matchWord("LEADING") || p.matchWord("TRAILING") {
				if p.match(token.FROM) {
					fn.Args = append(fn.Args, p.parseExpression())
					return
				}
			}
			fn.Args = append(fn.Args, p.parseExpression())
			if p.match(token.FROM) || p.match(token.COMMA) {
				fn.Args = append(fn.Args, p.parseExpression())
			}
		})
	}
	return nil
}

// parseKeywordArgs parses name "(" args ")" where args uses keyword
// separators handled by parseArgs.
func (p *Parser) parseKeywordArgs(start token.Position, parseArgs func(fn *core.FuncCall)) core.Expr {
	fn := &core.FuncCall{Name: core.ObjectName{p.parseIdent()}}
	p.expect(token.LPAREN)
	parseArgs(fn)
	p.expect(token.RPAREN)
	p.parseFuncSuffix(fn)
	fn.NodeInfo = p.info(start)
	return fn
}

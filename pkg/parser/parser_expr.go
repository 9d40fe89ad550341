package parser

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels:
//
//	precNone       = 0
//	precOr         = 1
//	precAnd        = 2
//	precNot        = 3
//	precComparison = 4  (=, !=, <, >, <=, >=, IS, IN, BETWEEN, LIKE, ILIKE, RLIKE, SIMILAR TO)
//	precBitwise    = 5  (&, |, ^)
//	precAddition   = 6  (+, -, ||)
//	precMultiply   = 7  (*, /, %)
//	precUnary      = 8  (-, +, ~)
//	precPostfix    = 9  (::, [], :path, ->, ->>, COLLATE, AT TIME ZONE)
//
// Dialect operators are recognized by word (ILIKE, RLIKE, REGEXP, GLOB), so
// the same expression grammar serves every dialect.

const (
	precNone = iota
	precOr
	precAnd
	precNot
	precComparison
	precBitwise
	precAddition
	precMultiply
	precUnary
	precPostfix
)

// likeWords are the pattern matching operators written as words.
var likeWords = []string{"ILIKE", "RLIKE", "REGEXP", "GLOB", "SIMILAR"}

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() core.Expr {
	return p.parseExpressionWithPrecedence(precNone + 1)
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []core.Expr {
	var exprs []core.Expr
	for {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return exprs
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.Expr {
	start := p.token.Pos

	// Parse prefix (unary operators and primary expressions)
	left := p.parsePrefixExpr()

	// Parse infix operators while their precedence is >= minPrecedence
	for {
		prec := p.infixPrecedence()
		if prec == precNone || prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(start, left, prec)
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() core.Expr {
	start := p.token.Pos

	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precNot)
		return &core.UnaryExpr{NodeInfo: p.info(start), Op: token.NOT, Expr: expr}

	case token.MINUS, token.PLUS, token.TILDE:
		op := p.token.Type
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		return &core.UnaryExpr{NodeInfo: p.info(start), Op: op, Expr: expr}

	default:
		return p.parsePostfix(start, p.parsePrimary())
	}
}

// infixPrecedence returns the precedence of the current token as an infix operator.
// Returns precNone if the token is not an infix operator.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.IS, token.IN, token.BETWEEN, token.LIKE:
		return precComparison
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE, ...
		if p.checkPeek(token.IN) || p.checkPeek(token.BETWEEN) || p.checkPeek(token.LIKE) || isLikeWord(p.peek) {
			return precComparison
		}
		return precNone
	case token.AMP, token.PIPE, token.CARET:
		return precBitwise
	case token.PLUS, token.MINUS, token.DPIPE:
		return precAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiply
	}
	if isLikeWord(p.token) {
		return precComparison
	}
	return precNone
}

// isLikeWord reports whether tok is a word-form pattern operator.
func isLikeWord(tok token.Token) bool {
	for _, w := range likeWords {
		if isWord(tok, w) {
			return true
		}
	}
	return false
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(start token.Position, left core.Expr, prec int) core.Expr {
	switch p.token.Type {
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE, NOT ILIKE
		p.nextToken()
		return p.parseNegatableInfix(start, left, true)

	case token.IS:
		return p.parseIsExpr(start, left)

	case token.IN, token.BETWEEN, token.LIKE:
		return p.parseNegatableInfix(start, left, false)

	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		op := p.token.Type
		p.nextToken()
		if (p.checkWord("ANY") || p.checkWord("SOME") || p.check(token.ALL)) && p.checkPeek(token.LPAREN) {
			return p.parseQuantified(start, left, op)
		}
		right := p.parseExpressionWithPrecedence(prec + 1)
		return &core.BinaryExpr{NodeInfo: p.info(start), Left: left, Op: op, Right: right}
	}

	if isLikeWord(p.token) {
		return p.parseNegatableInfix(start, left, false)
	}

	// Standard binary operators
	op := p.token.Type
	p.nextToken()

	// Parse right operand with higher precedence (left-associative)
	right := p.parseExpressionWithPrecedence(prec + 1)

	return &core.BinaryExpr{NodeInfo: p.info(start), Left: left, Op: op, Right: right}
}

// parseNegatableInfix parses IN, BETWEEN and pattern operators, after an optional NOT.
func (p *Parser) parseNegatableInfix(start token.Position, left core.Expr, not bool) core.Expr {
	switch {
	case p.match(token.IN):
		return p.parseInExpr(start, left, not)
	case p.match(token.BETWEEN):
		return p.parseBetweenExpr(start, left, not)
	case p.check(token.LIKE) || isLikeWord(p.token):
		return p.parseLikeExpr(start, left, not)
	}
	p.addError("expected IN, BETWEEN, LIKE, or ILIKE after NOT")
	return nil
}

// parseIsExpr parses IS [NOT] NULL / TRUE / FALSE / UNKNOWN / DISTINCT FROM.
func (p *Parser) parseIsExpr(start token.Position, left core.Expr) core.Expr {
	p.nextToken() // consume IS

	isNot := p.match(token.NOT)

	switch {
	case p.match(token.NULL), p.matchWord("UNKNOWN"):
		return &core.IsNullExpr{NodeInfo: p.info(start), Expr: left, Not: isNot}

	case p.match(token.TRUE):
		return &core.IsBoolExpr{NodeInfo: p.info(start), Expr: left, Not: isNot, Value: true}

	case p.match(token.FALSE):
		return &core.IsBoolExpr{NodeInfo: p.info(start), Expr: left, Not: isNot, Value: false}

	case p.match(token.DISTINCT):
		p.expect(token.FROM)
		right := p.parseExpressionWithPrecedence(precComparison + 1)
		return &core.IsDistinctExpr{NodeInfo: p.info(start), Left: left, Right: right, Not: isNot}
	}

	p.addError("expected NULL, TRUE, FALSE, or DISTINCT FROM after IS")
	return nil
}

// parseInExpr parses the list or subquery of an IN expression.
func (p *Parser) parseInExpr(start token.Position, left core.Expr, not bool) core.Expr {
	in := &core.InExpr{Expr: left, Not: not}

	if !p.check(token.LPAREN) {
		// x IN array_column (DuckDB)
		in.Values = []core.Expr{p.parseExpressionWithPrecedence(precComparison + 1)}
		in.NodeInfo = p.info(start)
		return in
	}

	p.expect(token.LPAREN)
	switch {
	case isQueryStart(p.token):
		in.Query = p.parseQuery()
	case p.check(token.RPAREN):
	default:
		in.Values = p.parseExpressionList()
	}
	p.expect(token.RPAREN)

	in.NodeInfo = p.info(start)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(start token.Position, left core.Expr, not bool) core.Expr {
	between := &core.BetweenExpr{Expr: left, Not: not}
	p.matchWord("SYMMETRIC")
	// Parse bounds above AND so the separator is not captured
	between.Low = p.parseExpressionWithPrecedence(precBitwise)
	p.expect(token.AND)
	between.High = p.parseExpressionWithPrecedence(precBitwise)
	between.NodeInfo = p.info(start)
	return between
}

// parseLikeExpr parses LIKE/ILIKE/RLIKE/REGEXP/GLOB/SIMILAR TO with an
// optional ANY/ALL quantifier and ESCAPE clause.
func (p *Parser) parseLikeExpr(start token.Position, left core.Expr, not bool) core.Expr {
	like := &core.LikeExpr{Expr: left, Not: not, Op: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	if like.Op == "SIMILAR" {
		p.expectWord("TO")
		like.Op = "SIMILAR TO"
	}

	if (p.checkWord("ANY") || p.check(token.ALL)) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		like.Any = true
		tupleStart := p.token.Pos
		p.expect(token.LPAREN)
		items := p.parseExpressionList()
		p.expect(token.RPAREN)
		like.Pattern = &core.TupleExpr{NodeInfo: p.info(tupleStart), Items: items}
	} else {
		like.Pattern = p.parseExpressionWithPrecedence(precBitwise)
	}

	if p.matchWord("ESCAPE") {
		like.Escape = p.parsePrimary()
	}

	like.NodeInfo = p.info(start)
	return like
}

// parseQuantified parses the right side of x op ANY|SOME|ALL (subquery | list).
func (p *Parser) parseQuantified(start token.Position, left core.Expr, op token.TokenType) core.Expr {
	q := &core.QuantifiedExpr{Left: left, Op: op, Quantifier: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	p.expect(token.LPAREN)
	if isQueryStart(p.token) {
		q.Query = p.parseQuery()
	} else {
		q.Values = p.parseExpressionList()
	}
	p.expect(token.RPAREN)
	q.NodeInfo = p.info(start)
	return q
}

// parsePostfix applies postfix operators: ::type, [index], :path, ->, ->>,
// COLLATE and AT TIME ZONE.
func (p *Parser) parsePostfix(start token.Position, expr core.Expr) core.Expr {
	for {
		switch {
		case p.check(token.DCOLON):
			p.nextToken()
			expr = &core.CastExpr{Expr: expr, TypeName: p.parseTypeName(), Operator: true}

		case p.check(token.LBRACKET):
			expr = p.parseIndex(expr)

		case p.check(token.COLON) && !p.noColonPath && (isIdentToken(p.peek) || p.peek.Type == token.STRING):
			p.nextToken()
			expr = &core.JSONAccessExpr{Expr: expr, Op: token.COLON, Path: p.parseJSONPath()}

		case p.check(token.ARROW), p.check(token.DARROW):
			op := p.token.Type
			p.nextToken()
			expr = &core.JSONAccessExpr{Expr: expr, Op: op, Path: p.parsePrefixOperand()}

		case p.checkWord("COLLATE"):
			p.nextToken()
			collation := p.token.Literal
			p.nextToken()
			expr = &core.CollateExpr{Expr: expr, Collation: collation}

		case p.checkWord("AT") && isWord(p.peek, "TIME") && isWord(p.peek2, "ZONE"):
			p.nextToken()
			p.nextToken()
			p.nextToken()
			expr = &core.AtTimeZoneExpr{Expr: expr, Zone: p.parsePrefixOperand()}

		default:
			return expr
		}
		setInfo(expr, p.info(start))
	}
}

// parsePrefixOperand parses a primary expression with its postfix operators.
func (p *Parser) parsePrefixOperand() core.Expr {
	return p.parsePostfix(p.token.Pos, p.parsePrimary())
}

// parseIndex parses x[i] or x[lo:hi].
func (p *Parser) parseIndex(expr core.Expr) core.Expr {
	p.expect(token.LBRACKET)
	saved := p.noColonPath
	p.noColonPath = true
	defer func() { p.noColonPath = saved }()

	idx := &core.IndexExpr{Expr: expr}
	if !p.check(token.COLON) {
		idx.Index = p.parseExpression()
	}
	if p.match(token.COLON) {
		idx.Slice = true
		if !p.check(token.RBRACKET) {
			idx.Upper = p.parseExpression()
		}
	}
	p.expect(token.RBRACKET)
	return idx
}

// parseJSONPath parses the path after ':' in col:a.b."c" as a string literal.
func (p *Parser) parseJSONPath() core.Expr {
	start := p.token.Pos
	var parts []string
	for {
		parts = append(parts, p.token.Literal)
		p.nextToken()
		if !p.check(token.DOT) || !(isIdentToken(p.peek) || p.peek.Type == token.STRING) {
			break
		}
		p.nextToken()
	}
	return &core.Literal{NodeInfo: p.info(start), Type: core.LiteralString, Value: strings.Join(parts, ".")}
}

// setInfo sets the source span of a postfix node.
func setInfo(expr core.Expr, info core.NodeInfo) {
	switch e := expr.(type) {
	case *core.CastExpr:
		e.NodeInfo = info
	case *core.IndexExpr:
		e.NodeInfo = info
	case *core.JSONAccessExpr:
		e.NodeInfo = info
	case *core.CollateExpr:
		e.NodeInfo = info
	case *core.AtTimeZoneExpr:
		e.NodeInfo = info
	}
}

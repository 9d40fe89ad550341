package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Statement and query parsing: dispatch, WITH clause, set operations,
// SELECT core, SELECT list, ORDER BY, LIMIT.
//
// Grammar:
//
//	query         → [WITH cte_list] set_expr [ORDER BY order_list]
//	                [LIMIT expr | LIMIT ALL] [OFFSET expr [ROW|ROWS]] [fetch]
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" ident_list ")"] AS [[NOT] MATERIALIZED] "(" query ")"
//	set_expr      → set_term ((UNION|EXCEPT|MINUS) [ALL|DISTINCT] [BY NAME] set_term)*
//	set_term      → set_operand (INTERSECT [ALL|DISTINCT] set_operand)*
//	set_operand   → select_core | "(" query ")" | VALUES rows | TABLE name
//	select_core   → SELECT [ALL | DISTINCT [ON "(" expr_list ")"]] [TOP expr]
//	                select_list [INTO name] [FROM from_clause]
//	                [WHERE expr] [GROUP BY (ALL | group_list)] [HAVING expr]
//	                [WINDOW window_defs] [QUALIFY expr]
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" [star_modifiers] | name "." "*" | expr [[AS] identifier]
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC] [NULLS FIRST|LAST]
//	fetch         → FETCH (FIRST|NEXT) [expr] [PERCENT] (ROW|ROWS) (ONLY | WITH TIES)

// Set operator binding strength: INTERSECT binds tighter than UNION/EXCEPT.
const (
	setPrecUnion     = 1
	setPrecIntersect = 2
)

// parseStatement parses one statement of any supported kind.
func (p *Parser) parseStatement() core.Stmt {
	switch {
	case p.check(token.WITH):
		return p.parseWithStatement()
	case p.check(token.SELECT), p.check(token.LPAREN), p.check(token.VALUES):
		return p.parseQuery()
	case p.check(token.TABLE) && isIdentToken(p.peek):
		return p.parseQuery()
	case p.check(token.INSERT):
		return p.parseInsert(p.token.Pos, nil)
	case p.check(token.UPDATE):
		return p.parseUpdate(p.token.Pos, nil)
	case p.check(token.DELETE):
		return p.parseDelete(p.token.Pos, nil)
	case p.check(token.MERGE):
		return p.parseMerge(p.token.Pos, nil)
	case p.check(token.CREATE):
		return p.parseCreate()
	case p.check(token.ALTER):
		return p.parseAlter()
	case p.check(token.DROP):
		return p.parseDrop()
	case p.checkWord("TRUNCATE"):
		return p.parseTruncate()
	case p.checkWord("COPY"):
		return p.parseCopy()
	case p.check(token.EOF), p.check(token.SEMICOLON):
		p.addError(fmt.Sprintf(ErrExpectedStatement, describe(p.token)))
		return nil
	default:
		return p.parseRaw()
	}
}

// parseWithStatement parses a WITH clause and the statement it prefixes.
func (p *Parser) parseWithStatement() core.Stmt {
	start := p.token.Pos
	with := p.parseWithClause()

	switch p.token.Type {
	case token.INSERT:
		return p.parseInsert(start, with)
	case token.UPDATE:
		return p.parseUpdate(start, with)
	case token.DELETE:
		return p.parseDelete(start, with)
	case token.MERGE:
		return p.parseMerge(start, with)
	}
	return p.parseQueryWith(start, with)
}

// parseQuery parses a complete query with optional WITH clause.
func (p *Parser) parseQuery() *core.SelectStmt {
	start := p.token.Pos
	var with *core.WithClause
	if p.check(token.WITH) {
		with = p.parseWithClause()
	}
	return p.parseQueryWith(start, with)
}

// parseQueryWith parses the query body and trailing clauses after an
// already parsed WITH clause.
func (p *Parser) parseQueryWith(start token.Position, with *core.WithClause) *core.SelectStmt {
	stmt := &core.SelectStmt{With: with}
	stmt.Body = p.parseSetExpr(setPrecUnion)
	p.parseQueryTail(stmt)
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *core.WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &core.WithClause{}

	// Optional RECURSIVE
	if p.match(token.RECURSIVE) {
		with.Recursive = true
	}

	// Parse CTE list
	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(token.COMMA) {
			break
		}
	}

	with.NodeInfo = p.info(start)
	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *core.CTE {
	start := p.token.Pos
	cte := &core.CTE{Name: p.parseIdent()}

	if p.check(token.LPAREN) {
		cte.Columns = p.parseIdentList()
	}

	p.expect(token.AS)

	switch {
	case p.check(token.NOT) && isWord(p.peek, "MATERIALIZED"):
		p.nextToken()
		p.nextToken()
		cte.Materialized = "NOT MATERIALIZED"
	case p.matchWord("MATERIALIZED"):
		cte.Materialized = "MATERIALIZED"
	}

	p.expect(token.LPAREN)
	cte.Select = p.parseQuery()
	p.expect(token.RPAREN)

	cte.NodeInfo = p.info(start)
	return cte
}

// setOperator returns the set operation at the current token and its binding strength.
func (p *Parser) setOperator() (core.SetOpType, int) {
	switch {
	case p.check(token.UNION):
		return core.SetOpUnion, setPrecUnion
	case p.check(token.EXCEPT):
		return core.SetOpExcept, setPrecUnion
	case p.checkWord("MINUS"):
		return core.SetOpMinus, setPrecUnion
	case p.check(token.INTERSECT):
		return core.SetOpIntersect, setPrecIntersect
	}
	return "", 0
}

// parseSetExpr parses set operations with precedence climbing.
func (p *Parser) parseSetExpr(minPrec int) core.SetExpr {
	start := p.token.Pos
	left := p.parseSetOperand()

	for {
		op, prec := p.setOperator()
		if prec == 0 || prec < minPrec {
			break
		}
		p.nextToken()

		setOp := &core.SetOperation{Op: op, Left: left}
		if p.match(token.ALL) {
			setOp.All = true
		} else {
			p.match(token.DISTINCT) // optional
		}
		if p.check(token.BY) && isWord(p.peek, "NAME") {
			p.nextToken()
			p.nextToken()
			setOp.ByName = true
		}

		setOp.Right = p.parseSetExpr(prec + 1)
		setOp.NodeInfo = p.info(start)
		left = setOp
	}

	return left
}

// parseSetOperand parses one operand of a set operation.
func (p *Parser) parseSetOperand() core.SetExpr {
	start := p.token.Pos
	switch p.token.Type {
	case token.SELECT:
		return p.parseSelectCore()
	case token.LPAREN:
		p.nextToken()
		q := &core.ParenQuery{Select: p.parseQuery()}
		p.expect(token.RPAREN)
		q.NodeInfo = p.info(start)
		return q
	case token.VALUES:
		return p.parseValues()
	case token.TABLE:
		p.nextToken()
		t := &core.TableQuery{Name: p.parseObjectName()}
		t.NodeInfo = p.info(start)
		return t
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "SELECT"))
	return nil
}

// parseValues parses VALUES (row), (row) ...
// A row written without parentheses holds a single expression.
func (p *Parser) parseValues() *core.ValuesList {
	start := p.token.Pos
	p.expect(token.VALUES)
	values := &core.ValuesList{}

	for {
		if p.match(token.LPAREN) {
			var row []core.Expr
			if !p.check(token.RPAREN) {
				row = p.parseExpressionList()
			}
			p.expect(token.RPAREN)
			values.Rows = append(values.Rows, row)
		} else {
			values.Rows = append(values.Rows, []core.Expr{p.parseExpression()})
		}
		if !p.match(token.COMMA) {
			break
		}
	}

	values.NodeInfo = p.info(start)
	return values
}

// parseSelectCore parses a single SELECT block.
func (p *Parser) parseSelectCore() *core.SelectCore {
	start := p.token.Pos
	p.expect(token.SELECT)
	sc := &core.SelectCore{}

	if p.match(token.DISTINCT) {
		sc.Distinct = true
		if p.match(token.ON) {
			p.expect(token.LPAREN)
			sc.DistinctOn = p.parseExpressionList()
			p.expect(token.RPAREN)
		}
	} else {
		p.match(token.ALL)
	}

	if p.checkWord("TOP") {
		p.nextToken()
		sc.Top = p.parseExpressionWithPrecedence(precUnary)
		p.matchWord("PERCENT")
	}

	sc.Columns = p.parseSelectList()

	if p.match(token.INTO) {
		p.matchWord("TEMPORARY")
		p.matchWord("TEMP")
		p.match(token.TABLE)
		sc.Into = p.parseObjectName()
	}

	if p.match(token.FROM) {
		sc.From = p.parseFromClause()
	}

	// WHERE, GROUP BY, HAVING, WINDOW and QUALIFY; dialects disagree on
	// the relative order of WINDOW and QUALIFY, so accept any order.
	for {
		switch {
		case sc.Where == nil && p.match(token.WHERE):
			sc.Where = p.parseExpression()
		case sc.GroupBy == nil && !sc.GroupByAll && p.check(token.GROUP) && p.checkPeek(token.BY):
			p.nextToken()
			p.nextToken()
			p.parseGroupBy(sc)
		case sc.Having == nil && p.match(token.HAVING):
			sc.Having = p.parseExpression()
		case sc.Windows == nil && p.match(token.WINDOW):
			sc.Windows = p.parseWindowDefs()
		case sc.Qualify == nil && p.checkWord("QUALIFY"):
			p.nextToken()
			sc.Qualify = p.parseExpression()
		default:
			sc.NodeInfo = p.info(start)
			return sc
		}
	}
}

// parseGroupBy parses the GROUP BY list after GROUP BY.
func (p *Parser) parseGroupBy(sc *core.SelectCore) {
	if p.match(token.ALL) {
		sc.GroupByAll = true
		return
	}
	for {
		if p.checkWord("GROUPING") && isWord(p.peek, "SETS") {
			sc.GroupBy = append(sc.GroupBy, p.parseGroupingSets())
		} else {
			sc.GroupBy = append(sc.GroupBy, p.parseExpression())
		}
		if !p.match(token.COMMA) {
			break
		}
	}
}

// parseGroupingSets parses GROUPING SETS ((a, b), c, ()).
func (p *Parser) parseGroupingSets() *core.GroupingSetsExpr {
	start := p.token.Pos
	p.nextToken() // GROUPING
	p.nextToken() // SETS
	p.expect(token.LPAREN)

	gs := &core.GroupingSetsExpr{}
	for {
		var set []core.Expr
		switch e := p.parseExpression().(type) {
		case *core.TupleExpr:
			set = e.Items
		case *core.ParenExpr:
			set = []core.Expr{e.Expr}
		default:
			set = []core.Expr{e}
		}
		gs.Sets = append(gs.Sets, set)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)

	gs.NodeInfo = p.info(start)
	return gs
}

// parseSelectList parses the SELECT list.
func (p *Parser) parseSelectList() []core.SelectItem {
	var items []core.SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.match(token.COMMA) {
			break
		}
		// trailing comma before FROM (DuckDB)
		if p.check(token.FROM) {
			break
		}
	}
	return items
}

// parseSelectItem parses a single SELECT list item.
func (p *Parser) parseSelectItem() core.SelectItem {
	item := core.SelectItem{}

	if p.match(token.STAR) {
		item.Star = true
		p.skipStarModifiers()
		return item
	}

	expr := p.parseExpression()
	if star, ok := expr.(*core.StarExpr); ok {
		if len(star.Table) == 0 {
			item.Star = true
		} else {
			item.TableStar = star.Table
		}
		p.skipStarModifiers()
		return item
	}
	item.Expr = expr

	switch {
	case p.match(token.AS):
		if p.check(token.STRING) {
			item.Alias = core.Ident{Value: p.token.Literal, Quote: '\''}
			p.nextToken()
		} else {
			item.Alias = p.parseIdent()
		}
	case p.canImplicitAlias():
		item.Alias = p.parseIdent()
	}

	return item
}

// skipStarModifiers skips EXCLUDE/EXCEPT/REPLACE/RENAME/ILIKE after a star.
// They change the star's expansion, which lineage cannot see without a catalog.
func (p *Parser) skipStarModifiers() {
	for {
		switch {
		case p.checkWord("EXCLUDE"), p.checkWord("REPLACE"), p.checkWord("RENAME"),
			p.check(token.EXCEPT) && p.checkPeek(token.LPAREN):
			p.nextToken()
			if p.check(token.LPAREN) {
				p.skipParens()
			} else {
				p.parseIdent()
			}
		case p.checkWord("ILIKE") && p.checkPeek(token.STRING):
			p.nextToken()
			p.nextToken()
		default:
			return
		}
	}
}

// parseQueryTail parses ORDER BY, LIMIT, OFFSET and FETCH of a query.
func (p *Parser) parseQueryTail(stmt *core.SelectStmt) {
	if p.check(token.ORDER) && p.checkPeek(token.BY) {
		p.nextToken()
		p.nextToken()
		stmt.OrderBy = p.parseOrderByList()
	}

	for {
		switch {
		case stmt.Limit == nil && p.match(token.LIMIT):
			if p.match(token.ALL) {
				stmt.Limit = &core.Literal{Type: core.LiteralNull, Value: "ALL"}
				continue
			}
			stmt.Limit = p.parseExpression()
			if p.match(token.COMMA) { // LIMIT offset, count
				stmt.Offset = stmt.Limit
				stmt.Limit = p.parseExpression()
			}
		case stmt.Offset == nil && p.match(token.OFFSET):
			stmt.Offset = p.parseExpression()
			if !p.match(token.ROWS) {
				p.match(token.ROW)
			}
		case stmt.Fetch == nil && p.checkWord("FETCH"):
			stmt.Fetch = p.parseFetch()
		default:
			return
		}
	}
}

// parseFetch parses FETCH FIRST|NEXT [n] [PERCENT] ROW|ROWS ONLY|WITH TIES.
func (p *Parser) parseFetch() *core.FetchClause {
	p.nextToken() // FETCH
	if !p.match(token.FIRST) {
		p.expectWord("NEXT")
	}

	fetch := &core.FetchClause{}
	if !p.check(token.ROW) && !p.check(token.ROWS) {
		fetch.Count = p.parseExpressionWithPrecedence(precAddition)
	}
	fetch.Percent = p.matchWord("PERCENT")
	if !p.match(token.ROWS) {
		p.expect(token.ROW)
	}
	if p.match(token.WITH) {
		p.expectWord("TIES")
		fetch.WithTies = true
	} else {
		p.expectWord("ONLY")
	}
	return fetch
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []core.OrderByItem {
	var items []core.OrderByItem
	for {
		item := core.OrderByItem{Expr: p.parseExpression()}

		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}

		if p.match(token.NULLS) {
			first := p.check(token.FIRST)
			if !p.match(token.FIRST) {
				p.expect(token.LAST)
			}
			item.NullsFirst = &first
		}

		items = append(items, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

// ---------- Skipping Helpers ----------

// skipParens consumes a balanced parenthesized group starting at "(".
func (p *Parser) skipParens() {
	p.expect(token.LPAREN)
	depth := 1
	for depth > 0 {
		switch p.token.Type {
		case token.EOF:
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.RPAREN))
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
	}
}

// atStatementEnd reports whether the current token ends the statement.
func (p *Parser) atStatementEnd() bool {
	return p.check(token.SEMICOLON) || p.check(token.EOF)
}

// skipToStatementEnd consumes tokens up to the end of the statement.
func (p *Parser) skipToStatementEnd() {
	for !p.atStatementEnd() {
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}
}

// parseRaw parses a statement that carries no lineage as opaque text.
func (p *Parser) parseRaw() *core.RawStmt {
	start := p.token.Pos
	raw := &core.RawStmt{Keyword: strings.ToUpper(p.token.Literal)}
	p.skipToStatementEnd()
	raw.Text = p.textFrom(start)
	raw.NodeInfo = p.info(start)
	return raw
}

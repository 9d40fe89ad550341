package parser

import (
	"fmt"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// FROM clause parsing: table references, derived tables, lateral joins,
// table functions, PIVOT/UNPIVOT, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join)*
//	table_ref     → table_factor (pivot | unpivot)* [sample]
//	table_factor  → table_name | derived_table | lateral_table | nested_join
//	              | UNNEST "(" expr_list ")" [WITH ORDINALITY] [alias]
//	              | [TABLE] "(" func_call ")" [alias] | func_call [alias]
//	table_name    → [catalog "."] [schema "."] identifier [time_travel] [alias]
//	derived_table → "(" query ")" [AS] identifier ["(" ident_list ")"]
//	lateral_table → LATERAL "(" query ")" [AS] identifier
//	nested_join   → "(" from_clause ")" [alias]
//	pivot         → PIVOT "(" agg_list FOR expr IN "(" in_list ")" ")" [alias]
//	unpivot       → UNPIVOT [(INCLUDE|EXCLUDE) NULLS] "(" ident FOR ident IN "(" ident_list ")" ")" [alias]
//	join          → "," table_ref
//	              | [NATURAL] join_type JOIN table_ref [ON expr | USING "(" ident_list ")"]
//	              | (CROSS|OUTER) APPLY table_ref
//	              | LATERAL VIEW [OUTER] func_call [alias] [AS ident_list]
//	join_type     → [INNER] | (LEFT|RIGHT|FULL) [OUTER] | CROSS | [LEFT] SEMI | [LEFT] ANTI
//	              | ASOF [LEFT] | POSITIONAL

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *core.FromClause {
	start := p.token.Pos
	from := &core.FromClause{}
	from.Source = p.parseTableRef()

	// Parse JOINs
	for {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	from.NodeInfo = p.info(start)
	return from
}

// parseTableRef parses a table factor and its PIVOT/UNPIVOT/sample suffixes.
func (p *Parser) parseTableRef() core.TableRef {
	start := p.token.Pos
	ref := p.parseTableFactor()

	for {
		switch {
		case p.checkWord("PIVOT") && p.checkPeek(token.LPAREN):
			ref = p.parsePivot(start, ref)
		case p.checkWord("UNPIVOT"):
			ref = p.parseUnpivot(start, ref)
		case p.checkWord("SAMPLE"), p.checkWord("TABLESAMPLE"):
			p.skipSample()
		default:
			return ref
		}
	}
}

// parseTableFactor parses a single FROM item.
func (p *Parser) parseTableFactor() core.TableRef {
	start := p.token.Pos

	switch {
	case p.check(token.LATERAL):
		p.nextToken()
		if p.check(token.LPAREN) {
			return p.parseLateralTable(start)
		}
		return p.parseTableFunction(start, p.parseObjectName())

	case p.check(token.LPAREN):
		if isQueryStart(p.peek) || (p.peek.Type == token.LPAREN && isQueryStart(p.peek2)) {
			return p.parseDerivedTable(start)
		}
		return p.parseNestedJoin(start)

	case p.checkWord("UNNEST") && p.checkPeek(token.LPAREN):
		return p.parseUnnest(start)

	case p.check(token.TABLE) && p.checkPeek(token.LPAREN):
		// TABLE(fn(...))
		p.nextToken()
		p.expect(token.LPAREN)
		fnStart := p.token.Pos
		fn := p.parseFuncCall(fnStart, p.parseObjectName())
		p.expect(token.RPAREN)
		tf := &core.TableFunction{Func: fn}
		tf.Alias = p.parseOptionalAlias()
		p.skipColumnAliases()
		tf.NodeInfo = p.info(start)
		return tf

	case p.check(token.STRING):
		// FROM 'file.parquet'
		t := &core.TableName{Name: core.ObjectName{{Value: p.token.Literal, Quote: '\''}}}
		p.nextToken()
		t.Alias = p.parseOptionalAlias()
		p.skipColumnAliases()
		t.NodeInfo = p.info(start)
		return t
	}

	name := p.parseObjectName()
	if p.check(token.LPAREN) {
		return p.parseTableFunction(start, name)
	}
	return p.parseTableName(start, name)
}

// isQueryStart reports whether tok can begin a query.
func isQueryStart(tok token.Token) bool {
	switch tok.Type {
	case token.SELECT, token.WITH, token.VALUES:
		return true
	}
	return false
}

// parseTableName finishes a table reference after its name.
func (p *Parser) parseTableName(start token.Position, name core.ObjectName) *core.TableName {
	table := &core.TableName{Name: name}
	p.skipTimeTravel()
	table.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()
	p.skipTimeTravel()
	table.NodeInfo = p.info(start)
	return table
}

// skipTimeTravel skips AT(...), BEFORE(...), CHANGES(...), VERSION AS OF n,
// TIMESTAMP AS OF ts and FOR SYSTEM_TIME AS OF ts.
func (p *Parser) skipTimeTravel() {
	for {
		switch {
		case (p.checkWord("AT") || p.checkWord("BEFORE") || p.checkWord("CHANGES")) && p.checkPeek(token.LPAREN):
			p.nextToken()
			p.skipParens()
		case (p.checkWord("VERSION") || p.checkWord("TIMESTAMP")) && p.checkPeek(token.AS) && isWord(p.peek2, "OF"):
			p.nextToken()
			p.nextToken()
			p.nextToken()
			p.parseExpressionWithPrecedence(precAddition)
		case p.checkWord("FOR") && isWord(p.peek, "SYSTEM_TIME"):
			p.nextToken()
			p.nextToken()
			p.expect(token.AS)
			p.expectWord("OF")
			p.parseExpressionWithPrecedence(precAddition)
		default:
			return
		}
	}
}

// skipColumnAliases skips a column alias list: t AS x(a, b).
func (p *Parser) skipColumnAliases() {
	if p.check(token.LPAREN) && isIdentToken(p.peek) {
		p.skipParens()
	}
}

// skipSample skips SAMPLE/TABLESAMPLE [method] (n [ROWS|PERCENT]) [REPEATABLE|SEED (n)].
func (p *Parser) skipSample() {
	p.nextToken() // SAMPLE
	for p.checkWord("BERNOULLI") || p.checkWord("SYSTEM") || p.checkWord("BLOCK") ||
		p.checkWord("RESERVOIR") || p.check(token.ROW) {
		p.nextToken()
	}
	if p.check(token.LPAREN) {
		p.skipParens()
	} else {
		p.parseExpressionWithPrecedence(precUnary)
		if !p.matchWord("PERCENT") && !p.match(token.ROWS) {
			p.match(token.PERCENT)
		}
	}
	if (p.checkWord("REPEATABLE") || p.checkWord("SEED")) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.skipParens()
	}
}

// parseDerivedTable parses a derived table (subquery in FROM).
func (p *Parser) parseDerivedTable(start token.Position) *core.DerivedTable {
	p.expect(token.LPAREN)
	derived := &core.DerivedTable{}
	derived.Select = p.parseQuery()
	p.expect(token.RPAREN)

	derived.Alias = p.parseOptionalAlias()
	if !derived.Alias.IsEmpty() && p.check(token.LPAREN) {
		derived.AliasColumns = p.parseIdentList()
	}

	derived.NodeInfo = p.info(start)
	return derived
}

// parseLateralTable parses a LATERAL subquery.
func (p *Parser) parseLateralTable(start token.Position) *core.LateralTable {
	p.expect(token.LPAREN)
	lateral := &core.LateralTable{}
	lateral.Select = p.parseQuery()
	p.expect(token.RPAREN)

	lateral.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()

	lateral.NodeInfo = p.info(start)
	return lateral
}

// parseNestedJoin parses a parenthesized join tree.
func (p *Parser) parseNestedJoin(start token.Position) *core.NestedJoin {
	p.expect(token.LPAREN)
	nested := &core.NestedJoin{From: p.parseFromClause()}
	p.expect(token.RPAREN)
	nested.Alias = p.parseOptionalAlias()
	nested.NodeInfo = p.info(start)
	return nested
}

// parseTableFunction parses a table-valued function call in FROM.
func (p *Parser) parseTableFunction(start token.Position, name core.ObjectName) *core.TableFunction {
	tf := &core.TableFunction{Func: p.parseFuncCall(start, name)}
	tf.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()
	tf.NodeInfo = p.info(start)
	return tf
}

// parseUnnest parses UNNEST(expr, ...) [WITH ORDINALITY] [alias].
func (p *Parser) parseUnnest(start token.Position) *core.UnnestTable {
	p.nextToken() // UNNEST
	p.expect(token.LPAREN)
	unnest := &core.UnnestTable{Exprs: p.parseExpressionList()}
	p.expect(token.RPAREN)

	if p.check(token.WITH) && isWord(p.peek, "ORDINALITY") {
		p.nextToken()
		p.nextToken()
		unnest.WithOrdinality = true
	}
	unnest.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()

	unnest.NodeInfo = p.info(start)
	return unnest
}

// parsePivot parses PIVOT (agg [AS a], ... FOR col IN (values)) [alias].
func (p *Parser) parsePivot(start token.Position, source core.TableRef) *core.PivotTable {
	p.nextToken() // PIVOT
	p.expect(token.LPAREN)

	pivot := &core.PivotTable{Source: source}
	for {
		expr := p.parseExpression()
		fn, ok := expr.(*core.FuncCall)
		if !ok {
			p.addError("expected aggregate function in PIVOT")
		}
		pivot.Aggregates = append(pivot.Aggregates, fn)
		if p.match(token.AS) || p.canImplicitAlias() && !p.checkWord("FOR") {
			p.parseIdent()
		}
		if !p.match(token.COMMA) {
			break
		}
	}

	p.expectWord("FOR")
	pivot.ForColumn = p.parseExpressionWithPrecedence(precComparison + 1)
	p.expect(token.IN)
	pivot.InValues = p.parsePivotValues()

	if p.checkWord("DEFAULT") {
		// DEFAULT ON NULL (expr)
		p.nextToken()
		p.expect(token.ON)
		p.expect(token.NULL)
		p.skipParens()
	}
	p.expect(token.RPAREN)

	pivot.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()
	pivot.NodeInfo = p.info(start)
	return pivot
}

// parsePivotValues parses the IN list of PIVOT: literals with optional
// aliases, ANY [ORDER BY ...] or a subquery.
func (p *Parser) parsePivotValues() []core.Expr {
	p.expect(token.LPAREN)

	var values []core.Expr
	switch {
	case p.checkWord("ANY"):
		p.nextToken()
		if p.check(token.ORDER) {
			p.nextToken()
			p.expect(token.BY)
			p.parseOrderByList()
		}
	case isQueryStart(p.token):
		start := p.token.Pos
		sub := &core.SubqueryExpr{Select: p.parseQuery()}
		sub.NodeInfo = p.info(start)
		values = append(values, sub)
	default:
		for {
			values = append(values, p.parseExpression())
			if p.match(token.AS) || p.canImplicitAlias() {
				p.parseIdent()
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	p.expect(token.RPAREN)
	return values
}

// parseUnpivot parses UNPIVOT [INCLUDE|EXCLUDE NULLS] (value FOR name IN (cols)) [alias].
func (p *Parser) parseUnpivot(start token.Position, source core.TableRef) *core.UnpivotTable {
	p.nextToken() // UNPIVOT
	if p.matchWord("INCLUDE") || p.matchWord("EXCLUDE") {
		p.expect(token.NULLS)
	}
	p.expect(token.LPAREN)

	unpivot := &core.UnpivotTable{Source: source}
	if p.check(token.LPAREN) {
		// multi-column value list: (v1, v2) FOR ...
		unpivot.ValueColumn = p.parseIdentList()[0]
	} else {
		unpivot.ValueColumn = p.parseIdent()
	}
	p.expectWord("FOR")
	unpivot.NameColumn = p.parseIdent()
	p.expect(token.IN)
	p.expect(token.LPAREN)
	for {
		if p.check(token.LPAREN) {
			unpivot.InColumns = append(unpivot.InColumns, p.parseIdentList()...)
		} else {
			unpivot.InColumns = append(unpivot.InColumns, p.parseIdent())
		}
		if p.match(token.AS) {
			p.parseExpressionWithPrecedence(precUnary)
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.RPAREN)

	unpivot.Alias = p.parseOptionalAlias()
	p.skipColumnAliases()
	unpivot.NodeInfo = p.info(start)
	return unpivot
}

// parseJoin parses a JOIN clause, returning nil when none follows.
func (p *Parser) parseJoin() *core.Join {
	start := p.token.Pos
	join := &core.Join{}

	// Comma join (implicit cross join)
	if p.match(token.COMMA) {
		join.Type = core.JoinComma
		join.Right = p.parseTableRef()
		join.NodeInfo = p.info(start)
		return join
	}

	// LATERAL VIEW [OUTER] explode(x) t AS c
	if p.check(token.LATERAL) && p.checkPeek(token.VIEW) {
		p.nextToken()
		p.nextToken()
		join.Type = core.JoinCross
		if p.match(token.OUTER) {
			join.Type = core.JoinLeft
		}
		fnStart := p.token.Pos
		tf := &core.TableFunction{Func: p.parseFuncCall(fnStart, p.parseObjectName())}
		if p.canImplicitAlias() {
			tf.Alias = p.parseIdent()
		}
		if p.match(token.AS) {
			for {
				p.parseIdent()
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		tf.NodeInfo = p.info(fnStart)
		join.Right = tf
		join.NodeInfo = p.info(start)
		return join
	}

	// CROSS APPLY / OUTER APPLY
	if (p.check(token.CROSS) || p.check(token.OUTER)) && isWord(p.peek, "APPLY") {
		join.Type = core.JoinCross
		if p.check(token.OUTER) {
			join.Type = core.JoinLeft
		}
		p.nextToken()
		p.nextToken()
		join.Right = p.parseTableRef()
		join.NodeInfo = p.info(start)
		return join
	}

	join.Natural = p.match(token.NATURAL)

	typ, ok := p.parseJoinType()
	if !ok {
		if join.Natural {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.JOIN))
		}
		return nil
	}
	join.Type = typ

	p.expect(token.JOIN)
	join.Right = p.parseTableRef()

	switch {
	case join.Natural:
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		join.Using = p.parseIdentList()
	}

	join.NodeInfo = p.info(start)
	return join
}

// parseJoinType consumes the join type keywords before JOIN.
// Plain JOIN is an inner join.
func (p *Parser) parseJoinType() (core.JoinType, bool) {
	switch {
	case p.check(token.JOIN):
		return core.JoinInner, true
	case p.match(token.INNER):
		return core.JoinInner, true
	case p.match(token.CROSS):
		return core.JoinCross, true
	case p.match(token.FULL):
		p.match(token.OUTER)
		return core.JoinFull, true
	case p.check(token.LEFT) || p.check(token.RIGHT):
		typ := core.JoinLeft
		if p.check(token.RIGHT) {
			typ = core.JoinRight
		}
		p.nextToken()
		switch {
		case p.match(token.OUTER):
		case p.matchWord("SEMI"):
			typ = core.JoinSemi
		case p.matchWord("ANTI"):
			typ = core.JoinAnti
		}
		return typ, true
	case p.checkWord("SEMI") && p.checkPeek(token.JOIN):
		p.nextToken()
		return core.JoinSemi, true
	case p.checkWord("ANTI") && p.checkPeek(token.JOIN):
		p.nextToken()
		return core.JoinAnti, true
	case p.checkWord("ASOF") && (p.checkPeek(token.JOIN) || p.checkPeek(token.LEFT)):
		p.nextToken()
		p.match(token.LEFT)
		return core.JoinAsOf, true
	case p.checkWord("POSITIONAL") && p.checkPeek(token.JOIN):
		p.nextToken()
		return core.JoinPositional, true
	}
	return "", false
}

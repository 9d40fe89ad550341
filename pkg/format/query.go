package format

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

func (p *Printer) formatSelectStmt(stmt *core.SelectStmt) {
	if stmt == nil {
		return
	}

	if stmt.With != nil {
		p.formatWithClause(stmt.With)
	}

	p.formatSetExpr(stmt.Body)

	if len(stmt.OrderBy) > 0 {
		p.kw(token.ORDER, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(stmt.OrderBy), func(i int) { p.formatOrderByItem(stmt.OrderBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}
	if stmt.Limit != nil {
		p.kw(token.LIMIT)
		p.space()
		p.formatExpr(stmt.Limit)
		p.writeln()
	}
	if stmt.Offset != nil {
		p.kw(token.OFFSET)
		p.space()
		p.formatExpr(stmt.Offset)
		p.writeln()
	}
	if stmt.Fetch != nil {
		p.formatFetchClause(stmt.Fetch)
		p.writeln()
	}
}

func (p *Printer) formatWithClause(with *core.WithClause) {
	p.kw(token.WITH)
	if with.Recursive {
		p.space()
		p.kw(token.RECURSIVE)
	}
	p.writeln()

	p.indent()
	p.formatList(len(with.CTEs), func(i int) {
		cte := with.CTEs[i]
		p.write(cte.Name.String())
		if len(cte.Columns) > 0 {
			p.write(" (")
			p.formatIdents(cte.Columns)
			p.write(")")
		}
		p.space()
		p.kw(token.AS)
		if cte.Materialized != "" {
			p.space()
			p.keyword(cte.Materialized)
		}
		p.space()
		p.formatSubquery(cte.Select)
	}, ",", true)
	p.writeln()
	p.dedent()
}

func (p *Printer) formatSetExpr(body core.SetExpr) {
	switch b := body.(type) {
	case *core.SelectCore:
		p.formatSelectCore(b)
	case *core.SetOperation:
		p.formatSetExpr(b.Left)
		p.keyword(string(b.Op))
		if b.All {
			p.space()
			p.kw(token.ALL)
		}
		if b.ByName {
			p.space()
			p.kw(token.BY)
			p.space()
			p.keyword("NAME")
		}
		p.writeln()
		p.formatSetExpr(b.Right)
	case *core.ParenQuery:
		p.formatSubquery(b.Select)
		p.writeln()
	case *core.ValuesList:
		p.kw(token.VALUES)
		p.writeln()
		p.indent()
		p.formatList(len(b.Rows), func(i int) {
			p.write("(")
			p.formatExprList(b.Rows[i])
			p.write(")")
		}, ",", true)
		p.dedent()
		p.writeln()
	case *core.TableQuery:
		p.kw(token.TABLE)
		p.space()
		p.write(b.Name.String())
		p.writeln()
	}
}

func (p *Printer) formatSelectCore(sc *core.SelectCore) {
	if sc == nil {
		return
	}

	// SELECT [DISTINCT [ON (...)]]
	p.kw(token.SELECT)
	if sc.Distinct {
		p.space()
		p.kw(token.DISTINCT)
		if len(sc.DistinctOn) > 0 {
			p.space()
			p.kw(token.ON)
			p.write(" (")
			p.formatExprList(sc.DistinctOn)
			p.write(")")
		}
	}
	if sc.Top != nil {
		p.space()
		p.keyword("TOP")
		p.space()
		p.formatExpr(sc.Top)
	}
	p.writeln()

	// Columns
	p.indent()
	p.formatList(len(sc.Columns), func(i int) { p.formatSelectItem(sc.Columns[i]) }, ",", true)
	p.writeln()
	p.dedent()

	if len(sc.Into) > 0 {
		p.kw(token.INTO)
		p.space()
		p.write(sc.Into.String())
		p.writeln()
	}

	if sc.From != nil {
		p.kw(token.FROM)
		p.space()
		p.formatFromClause(sc.From)
		p.writeln()
	}

	p.formatClause(sc.Where, token.WHERE)
	if sc.GroupByAll {
		p.kw(token.GROUP, token.BY, token.ALL)
		p.writeln()
	} else if len(sc.GroupBy) > 0 {
		p.kw(token.GROUP, token.BY)
		p.writeln()
		p.indent()
		p.formatList(len(sc.GroupBy), func(i int) { p.formatExpr(sc.GroupBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}
	p.formatClause(sc.Having, token.HAVING)
	if len(sc.Windows) > 0 {
		p.kw(token.WINDOW)
		p.space()
		p.formatList(len(sc.Windows), func(i int) {
			p.write(sc.Windows[i].Name)
			p.space()
			p.kw(token.AS)
			p.space()
			p.formatWindowSpec(sc.Windows[i].Spec)
		}, ", ", false)
		p.writeln()
	}
	if sc.Qualify != nil {
		p.keyword("QUALIFY")
		p.writeln()
		p.indent()
		p.formatExpr(sc.Qualify)
		p.dedent()
		p.writeln()
	}
}

// formatClause prints KEYWORD followed by an indented expression.
func (p *Printer) formatClause(e core.Expr, kw token.TokenType) {
	if e == nil {
		return
	}
	p.kw(kw)
	p.writeln()
	p.indent()
	p.formatExpr(e)
	p.dedent()
	p.writeln()
}

func (p *Printer) formatSelectItem(item core.SelectItem) {
	switch {
	case item.Star:
		p.write("*")
	case len(item.TableStar) > 0:
		p.write(item.TableStar.String())
		p.write(".*")
	default:
		p.formatExpr(item.Expr)
	}
	if !item.Alias.IsEmpty() {
		p.space()
		p.kw(token.AS)
		p.space()
		p.write(item.Alias.String())
	}
}

func (p *Printer) formatFromClause(from *core.FromClause) {
	p.formatTableRef(from.Source)

	for _, join := range from.Joins {
		if join.Type == core.JoinComma {
			p.write(",")
			p.writeln()
			p.indent()
			p.formatTableRef(join.Right)
			p.dedent()
			continue
		}

		p.writeln()
		p.formatJoin(join)
	}
}

func (p *Printer) formatJoin(join *core.Join) {
	if join.Natural {
		p.kw(token.NATURAL)
		p.space()
	}
	if join.Type != core.JoinInner && join.Type != "" {
		p.keyword(string(join.Type))
		p.space()
	}
	p.kw(token.JOIN)
	p.space()
	p.formatTableRef(join.Right)

	if join.Condition != nil {
		p.writeln()
		p.indent()
		p.kw(token.ON)
		p.space()
		p.formatExpr(join.Condition)
		p.dedent()
	}
	if len(join.Using) > 0 {
		p.space()
		p.kw(token.USING)
		p.write(" (")
		p.formatIdents(join.Using)
		p.write(")")
	}
}

func (p *Printer) formatTableRef(ref core.TableRef) {
	switch t := ref.(type) {
	case *core.TableName:
		p.write(t.Name.String())
		p.formatAlias(t.Alias)
	case *core.DerivedTable:
		p.formatSubquery(t.Select)
		p.formatAlias(t.Alias)
		if len(t.AliasColumns) > 0 {
			p.write(" (")
			p.formatIdents(t.AliasColumns)
			p.write(")")
		}
	case *core.LateralTable:
		p.kw(token.LATERAL)
		p.space()
		p.formatSubquery(t.Select)
		p.formatAlias(t.Alias)
	case *core.TableFunction:
		p.formatFuncCall(t.Func)
		p.formatAlias(t.Alias)
	case *core.PivotTable:
		p.formatTableRef(t.Source)
		p.space()
		p.keyword("PIVOT")
		p.write(" (")
		p.formatList(len(t.Aggregates), func(i int) { p.formatFuncCall(t.Aggregates[i]) }, ", ", false)
		p.space()
		p.keyword("FOR")
		p.space()
		p.formatExpr(t.ForColumn)
		p.space()
		p.kw(token.IN)
		p.write(" (")
		p.formatExprList(t.InValues)
		p.write("))")
		p.formatAlias(t.Alias)
	case *core.UnpivotTable:
		p.formatTableRef(t.Source)
		p.space()
		p.keyword("UNPIVOT")
		p.write(" (")
		p.write(t.ValueColumn.String())
		p.space()
		p.keyword("FOR")
		p.space()
		p.write(t.NameColumn.String())
		p.space()
		p.kw(token.IN)
		p.write(" (")
		p.formatIdents(t.InColumns)
		p.write("))")
		p.formatAlias(t.Alias)
	case *core.UnnestTable:
		p.keyword("UNNEST")
		p.write("(")
		p.formatExprList(t.Exprs)
		p.write(")")
		if t.WithOrdinality {
			p.space()
			p.kw(token.WITH)
			p.space()
			p.keyword("ORDINALITY")
		}
		p.formatAlias(t.Alias)
	case *core.NestedJoin:
		p.write("(")
		p.formatFromClause(t.From)
		p.write(")")
		p.formatAlias(t.Alias)
	}
}

func (p *Printer) formatAlias(alias core.Ident) {
	if alias.IsEmpty() {
		return
	}
	p.space()
	p.kw(token.AS)
	p.space()
	p.write(alias.String())
}

func (p *Printer) formatIdents(ids []core.Ident) {
	p.formatList(len(ids), func(i int) { p.write(ids[i].String()) }, ", ", false)
}

func (p *Printer) formatOrderByList(items []core.OrderByItem) {
	p.formatList(len(items), func(i int) { p.formatOrderByItem(items[i]) }, ", ", false)
}

func (p *Printer) formatOrderByItem(item core.OrderByItem) {
	p.formatExpr(item.Expr)
	if item.Desc {
		p.space()
		p.kw(token.DESC)
	}
	if item.NullsFirst != nil {
		p.space()
		p.kw(token.NULLS)
		p.space()
		if *item.NullsFirst {
			p.kw(token.FIRST)
		} else {
			p.kw(token.LAST)
		}
	}
}

func (p *Printer) formatFetchClause(fetch *core.FetchClause) {
	p.keyword("FETCH")
	p.space()
	p.kw(token.FIRST)
	if fetch.Count != nil {
		p.space()
		p.formatExpr(fetch.Count)
	}
	if fetch.Percent {
		p.space()
		p.keyword("PERCENT")
	}
	p.space()
	p.kw(token.ROWS)
	p.space()
	if fetch.WithTies {
		p.kw(token.WITH)
		p.space()
		p.keyword("TIES")
	} else {
		p.keyword("ONLY")
	}
}

package lineage

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/format"
)

// Visit walks one statement and records its lineage in c. The statement
// is analyzed in its own frame, which is collected into the frame below.
//
// On error the Context is left mid-traversal and must be discarded.
func Visit(c *Context, stmt core.Stmt) error {
	c.PushFrame()
	if err := visitStatement(c, stmt); err != nil {
		return err
	}
	f := c.PopFrame()
	c.Collect(f)
	return nil
}

// visitQuery visits a full query in a frame of its own and collects it
// into the caller's frame.
func visitQuery(c *Context, q *core.SelectStmt) error {
	if q == nil {
		return nil
	}
	c.PushFrame()
	err := withScope(c, q.With, func() error {
		if err := visitSetExpr(c, q.Body); err != nil {
			return err
		}
		for _, item := range q.OrderBy {
			if err := visitDetached(c, item.Expr); err != nil {
				return err
			}
		}
		return visitDetached(c, q.Limit, q.Offset)
	})
	if err != nil {
		return err
	}
	f := c.PopFrame()
	c.Collect(f)
	return nil
}

// withScope runs body with the CTEs of with visible, then resolves every
// reference to them.
func withScope(c *Context, with *core.WithClause, body func() error) error {
	if with == nil {
		return body()
	}

	c.PushFrame()
	for _, cte := range with.CTEs {
		if err := visitCTE(c, cte, with.Recursive); err != nil {
			return err
		}
	}
	withFrame := c.PopFrame()
	c.CollectAliases(withFrame)

	if err := body(); err != nil {
		return err
	}
	c.Coalesce(withFrame)
	return nil
}

func visitCTE(c *Context, cte *core.CTE, recursive bool) error {
	t := c.SyntheticTable(cte.Name)
	if recursive {
		c.AddTableAlias(t, cte.Name)
	}

	c.PushFrame()
	if err := visitQuery(c, cte.Select); err != nil {
		return err
	}
	f := c.PopFrame()
	if len(cte.Columns) > 0 {
		f.renameProjection(c.columnNames(cte.Columns))
	}
	c.CollectWithTable(f, t)
	return nil
}

func visitSetExpr(c *Context, body core.SetExpr) error {
	switch b := body.(type) {
	case *core.SelectCore:
		return visitSelect(c, b)
	case *core.SetOperation:
		c.PushFrame()
		if err := visitSetExpr(c, b.Left); err != nil {
			return err
		}
		left := c.PopFrame()

		c.PushFrame()
		if err := visitSetExpr(c, b.Right); err != nil {
			return err
		}
		right := c.PopFrame()

		// BY NAME already lines columns up
		if !b.ByName {
			right.renameProjection(left.projection)
		}
		c.Collect(left)
		c.Collect(right)
		return nil
	case *core.ParenQuery:
		return visitQuery(c, b.Select)
	case *core.ValuesList:
		for _, row := range b.Rows {
			if err := visitDetached(c, row...); err != nil {
				return err
			}
		}
		return nil
	case *core.TableQuery:
		c.AddInput(b.Name)
		return nil
	default:
		return nil
	}
}

// visitSelect visits one SELECT block.
//
// The FROM clause is visited first in a frame of its own so that its
// aliases are visible to the projection. Each projection item derives one
// named column, or an unnamed one for complex expressions without alias.
// The FROM frame is coalesced last, which resolves references to derived
// tables defined in it.
func visitSelect(c *Context, sc *core.SelectCore) error {
	savedTable, savedColumn, savedUnnamed := c.tableContext, c.columnContext, c.unnamed
	defer func() {
		c.tableContext, c.columnContext, c.unnamed = savedTable, savedColumn, savedUnnamed
	}()

	c.PushFrame()
	c.SetTableContext(nil)
	c.ClearColumnContext()

	var fromFrame Frame
	if sc.From != nil {
		c.PushFrame()
		if err := visitFrom(c, sc.From); err != nil {
			return err
		}
		fromFrame = c.PopFrame()
		c.CollectAliases(fromFrame)
	}
	c.SetTableContext(singleSourceTable(c, sc.From))

	projection := make([]string, 0, len(sc.Columns))
	for _, item := range sc.Columns {
		name := projectionName(c, item)
		projection = append(projection, name)
		if item.Expr == nil {
			continue
		}
		if name == "" {
			c.SetUnnamedColumnContext()
		} else {
			c.SetColumnContext(&ColumnMeta{Name: name})
		}
		if err := visitExpr(c, item.Expr); err != nil {
			return err
		}
	}
	c.ClearColumnContext()
	c.setProjection(projection)

	if len(sc.Into) > 0 {
		c.AddOutput(sc.Into)
	}

	clauses := append([]core.Expr{sc.Top, sc.Where, sc.Having, sc.Qualify}, sc.DistinctOn...)
	clauses = append(clauses, sc.GroupBy...)
	if err := visitDetached(c, clauses...); err != nil {
		return err
	}
	for _, w := range sc.Windows {
		if err := visitWindowSpec(c, w.Spec); err != nil {
			return err
		}
	}

	c.SetTableContext(nil)
	if sc.From != nil {
		c.Coalesce(fromFrame)
	}
	f := c.PopFrame()
	c.Collect(f)
	return nil
}

// singleSourceTable returns the default table for bare column references:
// the only FROM item when it is a plain table or an aliased subquery. The
// FROM aliases must already be visible.
func singleSourceTable(c *Context, from *core.FromClause) *TableMeta {
	if from == nil || len(from.Joins) > 0 {
		return nil
	}
	var t TableMeta
	switch src := from.Source.(type) {
	case *core.TableName:
		if src.Name.IsStage() || isLiteralPath(src.Name) {
			return nil
		}
		t = c.ResolveTable(src.Name)
	case *core.DerivedTable:
		return derivedSourceTable(c, src.Alias)
	case *core.LateralTable:
		return derivedSourceTable(c, src.Alias)
	case *core.PivotTable:
		return singleSourceTable(c, &core.FromClause{Source: src.Source})
	case *core.UnpivotTable:
		return singleSourceTable(c, &core.FromClause{Source: src.Source})
	default:
		return nil
	}
	return &t
}

func derivedSourceTable(c *Context, alias core.Ident) *TableMeta {
	if alias.IsEmpty() {
		return nil
	}
	t, ok := c.lookupAlias(core.ObjectName{alias})
	if !ok {
		return nil
	}
	return &t
}

// projectionName is the produced name of a projection item: its alias or
// the trailing part of a column reference. Other items are unnamed.
func projectionName(c *Context, item core.SelectItem) string {
	if !item.Alias.IsEmpty() {
		return c.dialect.NormalizeName(item.Alias)
	}
	if ref, ok := item.Expr.(*core.ColumnRef); ok {
		return c.dialect.NormalizeName(ref.Column)
	}
	return ""
}

// visitFrom visits every FROM item and join target in a frame of its own,
// then the join conditions once every alias is visible.
func visitFrom(c *Context, from *core.FromClause) error {
	refs := []core.TableRef{from.Source}
	for _, j := range from.Joins {
		refs = append(refs, j.Right)
	}
	for _, ref := range refs {
		c.PushFrame()
		if err := visitTableRef(c, ref); err != nil {
			return err
		}
		f := c.PopFrame()
		c.CollectAliases(f)
		c.Collect(f)
	}
	for _, j := range from.Joins {
		if err := visitDetached(c, j.Condition); err != nil {
			return err
		}
	}
	return nil
}

func visitTableRef(c *Context, ref core.TableRef) error {
	switch t := ref.(type) {
	case *core.TableName:
		visitTableName(c, t.Name, t.Alias)
		return nil
	case *core.DerivedTable:
		return visitDerived(c, t.Select, t.Alias, t.AliasColumns)
	case *core.LateralTable:
		return visitDerived(c, t.Select, t.Alias, nil)
	case *core.TableFunction:
		// table-valued functions carry no table lineage
		return nil
	case *core.PivotTable:
		return visitPivot(c, t.Source, t.Alias)
	case *core.UnpivotTable:
		return visitPivot(c, t.Source, t.Alias)
	default:
		return &UnsupportedError{SQL: format.Compact(ref)}
	}
}

func visitTableName(c *Context, name core.ObjectName, alias core.Ident) {
	switch {
	case name.IsStage():
		c.AddExternalInput(name.String(), true, true)
	case isLiteralPath(name):
		c.AddExternalInput(name[0].Value, true, true)
	default:
		t := c.AddInput(name)
		if !alias.IsEmpty() {
			c.AddTableAlias(t, alias)
		} else if len(name) > 1 {
			c.AddTableAlias(t, name.Last())
		}
	}
}

// isLiteralPath reports whether a FROM item is a quoted file path such as
// FROM 'data/*.parquet'.
func isLiteralPath(name core.ObjectName) bool {
	return len(name) == 1 && name[0].Quote == '\''
}

// visitDerived visits a subquery FROM item. An aliased subquery becomes a
// synthetic table under its alias. An unaliased one only contributes its
// tables.
func visitDerived(c *Context, sel *core.SelectStmt, alias core.Ident, columns []core.Ident) error {
	c.PushFrame()
	if err := visitQuery(c, sel); err != nil {
		return err
	}
	f := c.PopFrame()

	if alias.IsEmpty() {
		f.dropColumns()
		c.Collect(f)
		return nil
	}
	if len(columns) > 0 {
		f.renameProjection(c.columnNames(columns))
	}
	c.CollectWithTable(f, c.SyntheticTable(alias))
	return nil
}

func visitPivot(c *Context, source core.TableRef, alias core.Ident) error {
	src, ok := source.(*core.TableName)
	if !ok {
		return notSimpleTable(source)
	}
	t := c.AddInput(src.Name)
	if !src.Alias.IsEmpty() {
		c.AddTableAlias(t, src.Alias)
	}
	if !alias.IsEmpty() {
		c.AddTableAlias(t, alias)
	}
	return nil
}

func (c *Context) columnNames(ids []core.Ident) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = c.dialect.NormalizeName(id)
	}
	return names
}

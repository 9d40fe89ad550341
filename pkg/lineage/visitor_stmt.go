package lineage

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// visitStatement dispatches on the statement kind. Statements that move
// no data, such as GRANT or SET, record nothing.
func visitStatement(c *Context, stmt core.Stmt) error {
	switch s := stmt.(type) {
	case *core.SelectStmt:
		return visitQuery(c, s)
	case *core.InsertStmt:
		return withScope(c, s.With, func() error { return visitInsert(c, s) })
	case *core.UpdateStmt:
		return withScope(c, s.With, func() error { return visitUpdate(c, s) })
	case *core.DeleteStmt:
		return withScope(c, s.With, func() error { return visitDelete(c, s) })
	case *core.MergeStmt:
		return withScope(c, s.With, func() error { return visitMerge(c, s) })
	case *core.CreateTableStmt:
		return visitCreateTable(c, s)
	case *core.CreateViewStmt:
		return visitCreateView(c, s)
	case *core.CreateStageStmt:
		if s.URL != "" {
			c.AddExternalInput(s.URL, true, true)
		}
		c.AddExternalOutput(s.Name.String(), false, true)
		return nil
	case *core.AlterTableStmt:
		visitAlterTable(c, s)
		return nil
	case *core.TruncateStmt:
		for _, name := range s.Tables {
			c.AddOutput(name)
		}
		return nil
	case *core.DropStmt:
		for _, name := range s.Names {
			if strings.EqualFold(s.ObjectType, "STAGE") {
				c.AddExternalOutput(name.String(), false, false)
				continue
			}
			c.AddOutput(name)
		}
		return nil
	case *core.CopyIntoStmt:
		return visitCopy(c, s)
	default:
		return nil
	}
}

// produceColumns renames the statement's produced columns by an explicit
// column list and ties them to the written table.
func produceColumns(c *Context, target TableMeta, columns []string) {
	top := c.top()
	if len(columns) > 0 {
		top.renameProjection(columns)
	}
	top.attributeColumns(target)
}

func visitInsert(c *Context, s *core.InsertStmt) error {
	if err := visitQuery(c, s.Source); err != nil {
		return err
	}
	target := c.AddOutput(s.Table)
	if !s.Alias.IsEmpty() {
		c.AddTableAlias(target, s.Alias)
	}
	produceColumns(c, target, c.columnNames(s.Columns))
	return visitReturning(c, s.Returning)
}

func visitReturning(c *Context, items []core.SelectItem) error {
	for _, item := range items {
		if err := visitDetached(c, item.Expr); err != nil {
			return err
		}
	}
	return nil
}

// targetTable registers the written table of UPDATE and MERGE, which must
// be a plain table name.
func targetTable(c *Context, ref core.TableRef) (TableMeta, error) {
	tn, ok := ref.(*core.TableName)
	if !ok {
		return TableMeta{}, notSimpleTable(ref)
	}
	t := c.AddOutput(tn.Name)
	if !tn.Alias.IsEmpty() {
		c.AddTableAlias(t, tn.Alias)
	}
	return t, nil
}

// visitAssignments records each SET target as a column of table derived
// from its value.
func visitAssignments(c *Context, table TableMeta, assignments []core.Assignment) error {
	defer c.ClearColumnContext()
	for _, a := range assignments {
		col := c.Column(a.Column.Last(), &table)
		c.SetColumnContext(&col)
		if err := visitExpr(c, a.Value); err != nil {
			return err
		}
	}
	return nil
}

func visitUpdate(c *Context, s *core.UpdateStmt) error {
	target, err := targetTable(c, s.Table)
	if err != nil {
		return err
	}

	c.PushFrame()
	for _, j := range s.Joins {
		c.PushFrame()
		if err := visitTableRef(c, j.Right); err != nil {
			return err
		}
		f := c.PopFrame()
		c.CollectAliases(f)
		c.Collect(f)
	}
	if s.From != nil {
		if err := visitFrom(c, s.From); err != nil {
			return err
		}
	}
	for _, j := range s.Joins {
		if err := visitDetached(c, j.Condition); err != nil {
			return err
		}
	}
	fromFrame := c.PopFrame()
	c.CollectAliases(fromFrame)

	if s.From == nil && len(s.Joins) == 0 {
		c.SetTableContext(&target)
	}
	defer c.SetTableContext(nil)

	if err := visitAssignments(c, target, s.Assignments); err != nil {
		return err
	}
	if err := visitDetached(c, s.Where); err != nil {
		return err
	}
	if err := visitReturning(c, s.Returning); err != nil {
		return err
	}
	c.Coalesce(fromFrame)
	return nil
}

func visitDelete(c *Context, s *core.DeleteStmt) error {
	if s.From != nil {
		refs := []core.TableRef{s.From.Source}
		for _, j := range s.From.Joins {
			refs = append(refs, j.Right)
		}
		for _, ref := range refs {
			if _, err := targetTable(c, ref); err != nil {
				return err
			}
		}
	}
	for _, name := range s.Tables {
		c.AddOutput(name)
	}

	var usingFrame Frame
	if s.Using != nil {
		c.PushFrame()
		if err := visitFrom(c, s.Using); err != nil {
			return err
		}
		usingFrame = c.PopFrame()
		c.CollectAliases(usingFrame)
	}

	if s.From != nil {
		for _, j := range s.From.Joins {
			if err := visitDetached(c, j.Condition); err != nil {
				return err
			}
		}
	}
	if err := visitDetached(c, s.Where); err != nil {
		return err
	}
	if err := visitReturning(c, s.Returning); err != nil {
		return err
	}
	if s.Using != nil {
		c.Coalesce(usingFrame)
	}
	return nil
}

func visitMerge(c *Context, s *core.MergeStmt) error {
	target, err := targetTable(c, s.Target)
	if err != nil {
		return err
	}

	c.PushFrame()
	if err := visitTableRef(c, s.Source); err != nil {
		return err
	}
	source := c.PopFrame()
	c.CollectAliases(source)

	c.SetTableContext(singleSourceTable(c, &core.FromClause{Source: s.Source}))
	defer c.SetTableContext(nil)

	if err := visitDetached(c, s.On); err != nil {
		return err
	}
	for _, clause := range s.Clauses {
		if err := visitDetached(c, clause.Condition); err != nil {
			return err
		}
		switch clause.Action {
		case core.MergeUpdate:
			if err := visitAssignments(c, target, clause.Assignments); err != nil {
				return err
			}
		case core.MergeInsert:
			if err := visitMergeInsert(c, target, clause); err != nil {
				return err
			}
		}
	}
	c.Coalesce(source)
	return nil
}

// visitMergeInsert pairs the INSERT column list with its values. Without a
// column list the values are only visited for their tables.
func visitMergeInsert(c *Context, target TableMeta, clause *core.MergeClause) error {
	if len(clause.Columns) == 0 {
		return visitDetached(c, clause.Values...)
	}
	defer c.ClearColumnContext()
	for i, value := range clause.Values {
		if i >= len(clause.Columns) {
			c.ClearColumnContext()
		} else {
			col := c.Column(clause.Columns[i], &target)
			c.SetColumnContext(&col)
		}
		if err := visitExpr(c, value); err != nil {
			return err
		}
	}
	return nil
}

func visitCreateTable(c *Context, s *core.CreateTableStmt) error {
	if err := visitQuery(c, s.Query); err != nil {
		return err
	}
	if len(s.Like) > 0 {
		c.AddInput(s.Like)
	}
	if len(s.Clone) > 0 {
		c.AddInput(s.Clone)
	}
	target := c.AddOutput(s.Name)

	var columns []string
	if s.Query != nil {
		for _, def := range s.Columns {
			columns = append(columns, c.dialect.NormalizeName(def.Name))
		}
	}
	produceColumns(c, target, columns)
	return nil
}

func visitCreateView(c *Context, s *core.CreateViewStmt) error {
	if err := visitQuery(c, s.Query); err != nil {
		return err
	}
	target := c.AddOutput(s.Name)
	produceColumns(c, target, c.columnNames(s.Columns))
	return nil
}

// visitAlterTable treats SWAP WITH as a move in both directions, RENAME as
// a move from the old name to the new one, and anything else as a write.
func visitAlterTable(c *Context, s *core.AlterTableStmt) {
	if len(s.Operations) == 0 {
		c.AddOutput(s.Name)
		return
	}
	for _, op := range s.Operations {
		switch op.Kind {
		case core.AlterSwapWith:
			for _, name := range []core.ObjectName{s.Name, op.Target} {
				c.AddInput(name)
				c.AddOutput(name)
			}
		case core.AlterRenameTable:
			c.AddInput(s.Name)
			c.AddOutput(op.Target)
		default:
			c.AddOutput(s.Name)
		}
	}
}

// visitCopy handles COPY INTO in both directions. A stage or location on
// either side is a table-like quoted resource, the same identity it has as
// a FROM item or a stage URL; a table on either side is a table.
func visitCopy(c *Context, s *core.CopyIntoStmt) error {
	if err := visitQuery(c, s.Query); err != nil {
		return err
	}

	switch {
	case s.Into.IsExternal():
		c.AddExternalOutput(copyLocation(c, s.Into), true, true)
		c.top().dropColumns()
	case len(s.Into.Name) > 0:
		target := c.AddOutput(s.Into.Name)
		produceColumns(c, target, c.columnNames(s.Columns))
	}

	switch {
	case s.From.IsExternal():
		c.AddExternalInput(copyLocation(c, s.From), true, true)
	case len(s.From.Name) > 0:
		c.AddInput(s.From.Name)
	}
	return nil
}

// copyLocation names the external side of COPY. A location with a
// recognized storage prefix is named by its bare URL; any other literal
// location keeps its quotes, and stages are named as written.
func copyLocation(c *Context, loc core.CopyLocation) string {
	if loc.Location == "" {
		return loc.Name.String()
	}
	if _, ok := c.StorageScheme(loc.Location); ok {
		return loc.Location
	}
	return loc.String()
}

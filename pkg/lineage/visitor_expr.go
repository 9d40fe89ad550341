package lineage

import "github.com/leapstack-labs/leaplineage/pkg/core"

// visitExpr records the column references of e as ancestors of the current
// column context and visits every subquery for its tables.
func visitExpr(c *Context, e core.Expr) error {
	switch x := e.(type) {
	case nil:
		return nil
	case *core.ColumnRef:
		visitColumnRef(c, x)
		return nil
	case *core.Literal, *core.StarExpr:
		return nil
	case *core.BinaryExpr:
		return visitExprs(c, x.Left, x.Right)
	case *core.UnaryExpr:
		return visitExpr(c, x.Expr)
	case *core.FuncCall:
		return visitFuncCall(c, x)
	case *core.CaseExpr:
		exprs := []core.Expr{x.Operand, x.Else}
		for _, w := range x.Whens {
			exprs = append(exprs, w.Condition, w.Result)
		}
		return visitExprs(c, exprs...)
	case *core.CastExpr:
		return visitExpr(c, x.Expr)
	case *core.InExpr:
		if err := visitExprs(c, append([]core.Expr{x.Expr}, x.Values...)...); err != nil {
			return err
		}
		return visitSubquery(c, x.Query)
	case *core.BetweenExpr:
		return visitExprs(c, x.Expr, x.Low, x.High)
	case *core.IsNullExpr:
		return visitExpr(c, x.Expr)
	case *core.IsBoolExpr:
		return visitExpr(c, x.Expr)
	case *core.IsDistinctExpr:
		return visitExprs(c, x.Left, x.Right)
	case *core.LikeExpr:
		return visitExprs(c, x.Expr, x.Pattern, x.Escape)
	case *core.ParenExpr:
		return visitExpr(c, x.Expr)
	case *core.TupleExpr:
		return visitExprs(c, x.Items...)
	case *core.SubqueryExpr:
		return visitSubquery(c, x.Select)
	case *core.ExistsExpr:
		return visitSubquery(c, x.Select)
	case *core.QuantifiedExpr:
		if err := visitExprs(c, append([]core.Expr{x.Left}, x.Values...)...); err != nil {
			return err
		}
		return visitSubquery(c, x.Query)
	case *core.ArrayExpr:
		if err := visitExprs(c, x.Items...); err != nil {
			return err
		}
		return visitSubquery(c, x.Query)
	case *core.StructExpr:
		for _, f := range x.Fields {
			if err := visitExpr(c, f.Value); err != nil {
				return err
			}
		}
		return nil
	case *core.IndexExpr:
		return visitExprs(c, x.Expr, x.Index, x.Upper)
	case *core.JSONAccessExpr:
		return visitExprs(c, x.Expr, x.Path)
	case *core.IntervalExpr:
		return visitExpr(c, x.Value)
	case *core.AtTimeZoneExpr:
		return visitExprs(c, x.Expr, x.Zone)
	case *core.CollateExpr:
		return visitExpr(c, x.Expr)
	case *core.GroupingSetsExpr:
		for _, set := range x.Sets {
			if err := visitExprs(c, set...); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func visitExprs(c *Context, exprs ...core.Expr) error {
	for _, e := range exprs {
		if err := visitExpr(c, e); err != nil {
			return err
		}
	}
	return nil
}

// visitDetached visits expressions for their tables only, without
// recording column edges.
func visitDetached(c *Context, exprs ...core.Expr) error {
	column, unnamed := c.columnContext, c.unnamed
	defer func() { c.columnContext, c.unnamed = column, unnamed }()
	c.ClearColumnContext()
	return visitExprs(c, exprs...)
}

// visitColumnRef records an identifier as an ancestor. A qualified
// reference resolves its qualifier through the visible aliases; a bare one
// belongs to the table context.
func visitColumnRef(c *Context, ref *core.ColumnRef) {
	if c.ColumnContext() == nil {
		return
	}
	table := c.TableContext()
	if len(ref.Qualifier) > 0 {
		t := c.ResolveTable(ref.Qualifier)
		table = &t
	}
	c.AddColumnAncestors(c.Column(ref.Column, table))
}

func visitFuncCall(c *Context, fn *core.FuncCall) error {
	if err := visitExprs(c, fn.Args...); err != nil {
		return err
	}
	if err := visitExpr(c, fn.Filter); err != nil {
		return err
	}
	for _, items := range [][]core.OrderByItem{fn.OrderBy, fn.WithinGroup} {
		for _, item := range items {
			if err := visitExpr(c, item.Expr); err != nil {
				return err
			}
		}
	}
	return visitWindowSpec(c, fn.Window)
}

func visitWindowSpec(c *Context, w *core.WindowSpec) error {
	if w == nil {
		return nil
	}
	if err := visitExprs(c, w.PartitionBy...); err != nil {
		return err
	}
	for _, item := range w.OrderBy {
		if err := visitExpr(c, item.Expr); err != nil {
			return err
		}
	}
	if w.Frame != nil {
		for _, b := range []*core.FrameBound{w.Frame.Start, w.Frame.End} {
			if b != nil {
				if err := visitExpr(c, b.Offset); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// visitSubquery visits a subquery expression in a frame of its own. Its
// tables flow up as inputs. Under a named column context the ancestors of
// its produced columns become ancestors of that column.
func visitSubquery(c *Context, q *core.SelectStmt) error {
	if q == nil {
		return nil
	}
	c.PushFrame()
	if err := visitQuery(c, q); err != nil {
		return err
	}
	f := c.PopFrame()

	if c.ColumnContext() != nil {
		for _, e := range f.columns {
			if e.descendant.Table == nil {
				c.AddColumnAncestors(mapValues(e.ancestors)...)
			}
		}
	}
	f.dropColumns()
	c.Collect(f)
	return nil
}

package format

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

const complexityThreshold = 5

func (p *Printer) formatExpr(e core.Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *core.Literal:
		p.formatLiteral(expr)
	case *core.ColumnRef:
		p.write(expr.Parts().String())
	case *core.BinaryExpr:
		p.formatBinaryExpr(expr)
	case *core.UnaryExpr:
		p.formatUnaryExpr(expr)
	case *core.FuncCall:
		p.formatFuncCall(expr)
	case *core.CaseExpr:
		p.formatCaseExpr(expr)
	case *core.CastExpr:
		p.formatCastExpr(expr)
	case *core.InExpr:
		p.formatInExpr(expr)
	case *core.BetweenExpr:
		p.formatBetweenExpr(expr)
	case *core.IsNullExpr:
		p.formatIsNullExpr(expr)
	case *core.IsBoolExpr:
		p.formatIsBoolExpr(expr)
	case *core.IsDistinctExpr:
		p.formatIsDistinctExpr(expr)
	case *core.LikeExpr:
		p.formatLikeExpr(expr)
	case *core.ParenExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.write(")")
	case *core.TupleExpr:
		p.write("(")
		p.formatExprList(expr.Items)
		p.write(")")
	case *core.StarExpr:
		if len(expr.Table) > 0 {
			p.write(expr.Table.String())
			p.write(".")
		}
		p.write("*")
	case *core.SubqueryExpr:
		p.formatSubquery(expr.Select)
	case *core.ExistsExpr:
		if expr.Not {
			p.kw(token.NOT)
			p.space()
		}
		p.kw(token.EXISTS)
		p.space()
		p.formatSubquery(expr.Select)
	case *core.QuantifiedExpr:
		p.formatQuantifiedExpr(expr)
	case *core.ArrayExpr:
		p.formatArrayExpr(expr)
	case *core.StructExpr:
		p.formatStructExpr(expr)
	case *core.IndexExpr:
		p.formatIndexExpr(expr)
	case *core.JSONAccessExpr:
		p.formatJSONAccessExpr(expr)
	case *core.IntervalExpr:
		p.keyword("INTERVAL")
		p.space()
		p.formatExpr(expr.Value)
		if expr.Unit != "" {
			p.space()
			p.keyword(expr.Unit)
		}
	case *core.AtTimeZoneExpr:
		p.formatExpr(expr.Expr)
		p.space()
		p.keyword("AT TIME ZONE")
		p.space()
		p.formatExpr(expr.Zone)
	case *core.CollateExpr:
		p.formatExpr(expr.Expr)
		p.space()
		p.keyword("COLLATE")
		p.space()
		p.write(expr.Collation)
	case *core.GroupingSetsExpr:
		p.keyword("GROUPING SETS")
		p.write(" (")
		p.formatList(len(expr.Sets), func(i int) {
			p.write("(")
			p.formatExprList(expr.Sets[i])
			p.write(")")
		}, ", ", false)
		p.write(")")
	}
}

func (p *Printer) formatExprList(exprs []core.Expr) {
	p.formatList(len(exprs), func(i int) { p.formatExpr(exprs[i]) }, ", ", false)
}

func (p *Printer) exprComplexity(e core.Expr) int {
	if e == nil {
		return 0
	}

	switch expr := e.(type) {
	case *core.Literal, *core.ColumnRef, *core.StarExpr:
		return 1
	case *core.BinaryExpr:
		return 1 + p.exprComplexity(expr.Left) + p.exprComplexity(expr.Right)
	case *core.UnaryExpr:
		return 1 + p.exprComplexity(expr.Expr)
	case *core.FuncCall:
		score := 2
		for _, arg := range expr.Args {
			score += p.exprComplexity(arg)
		}
		return score
	case *core.ParenExpr:
		return p.exprComplexity(expr.Expr)
	case *core.CaseExpr:
		score := 2
		for _, w := range expr.Whens {
			score += p.exprComplexity(w.Condition) + p.exprComplexity(w.Result)
		}
		return score
	case *core.IndexExpr:
		return 1 + p.exprComplexity(expr.Expr) + p.exprComplexity(expr.Index) + p.exprComplexity(expr.Upper)
	default:
		return 1
	}
}

func isLogicalOp(op token.TokenType) bool {
	return op == token.AND || op == token.OR
}

func (p *Printer) formatLiteral(lit *core.Literal) {
	switch lit.Type {
	case core.LiteralString:
		p.write("'" + strings.ReplaceAll(lit.Value, "'", "''") + "'")
	case core.LiteralBool:
		if strings.EqualFold(lit.Value, "TRUE") {
			p.kw(token.TRUE)
		} else {
			p.kw(token.FALSE)
		}
	case core.LiteralNull:
		p.kw(token.NULL)
	default:
		p.write(lit.Value)
	}
}

func (p *Printer) formatBinaryExpr(expr *core.BinaryExpr) {
	shouldBreak := p.exprComplexity(expr) > complexityThreshold && isLogicalOp(expr.Op)

	p.formatExpr(expr.Left)

	if shouldBreak {
		p.writeln()
		p.kw(expr.Op)
		p.space()
	} else {
		p.space()
		p.kw(expr.Op)
		p.space()
	}

	p.formatExpr(expr.Right)
}

func (p *Printer) formatUnaryExpr(expr *core.UnaryExpr) {
	p.kw(expr.Op)
	if expr.Op == token.NOT {
		p.space()
	}
	p.formatExpr(expr.Expr)
}

func (p *Printer) formatFuncCall(fn *core.FuncCall) {
	p.write(fn.Name.String())
	p.write("(")

	if fn.Distinct {
		p.kw(token.DISTINCT)
		p.space()
	}

	if fn.Star {
		p.write("*")
	} else {
		p.formatExprList(fn.Args)
	}

	if len(fn.OrderBy) > 0 {
		p.space()
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatOrderByList(fn.OrderBy)
	}

	p.write(")")

	if len(fn.WithinGroup) > 0 {
		p.space()
		p.kw(token.WITHIN, token.GROUP)
		p.write(" (")
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatOrderByList(fn.WithinGroup)
		p.write(")")
	}

	// FILTER clause
	if fn.Filter != nil {
		p.space()
		p.kw(token.FILTER)
		p.write(" (")
		p.kw(token.WHERE)
		p.space()
		p.formatExpr(fn.Filter)
		p.write(")")
	}

	// OVER clause (window function)
	if fn.Window != nil {
		p.space()
		p.kw(token.OVER)
		p.space()
		p.formatWindowSpec(fn.Window)
	}
}

func (p *Printer) formatWindowSpec(w *core.WindowSpec) {
	if w.Name != "" && len(w.PartitionBy) == 0 && len(w.OrderBy) == 0 && w.Frame == nil {
		p.write(w.Name)
		return
	}

	p.write("(")
	var parts []func()
	if w.Name != "" {
		parts = append(parts, func() { p.write(w.Name) })
	}
	if len(w.PartitionBy) > 0 {
		parts = append(parts, func() {
			p.kw(token.PARTITION, token.BY)
			p.space()
			p.formatExprList(w.PartitionBy)
		})
	}
	if len(w.OrderBy) > 0 {
		parts = append(parts, func() {
			p.kw(token.ORDER, token.BY)
			p.space()
			p.formatOrderByList(w.OrderBy)
		})
	}
	if w.Frame != nil {
		parts = append(parts, func() { p.formatFrameSpec(w.Frame) })
	}
	for i, part := range parts {
		if i > 0 {
			p.space()
		}
		part()
	}
	p.write(")")
}

func (p *Printer) formatFrameSpec(f *core.FrameSpec) {
	p.keyword(string(f.Type))
	p.space()
	if f.End == nil {
		p.formatFrameBound(f.Start)
		return
	}
	p.kw(token.BETWEEN)
	p.space()
	p.formatFrameBound(f.Start)
	p.space()
	p.kw(token.AND)
	p.space()
	p.formatFrameBound(f.End)
}

func (p *Printer) formatFrameBound(b *core.FrameBound) {
	if b == nil {
		return
	}
	switch b.Type {
	case core.FrameUnboundedPreceding:
		p.kw(token.UNBOUNDED, token.PRECEDING)
	case core.FrameUnboundedFollowing:
		p.kw(token.UNBOUNDED, token.FOLLOWING)
	case core.FrameCurrentRow:
		p.kw(token.CURRENT, token.ROW)
	case core.FrameExprPreceding:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.PRECEDING)
	case core.FrameExprFollowing:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.FOLLOWING)
	}
}

func (p *Printer) formatCaseExpr(c *core.CaseExpr) {
	p.kw(token.CASE)

	if c.Operand != nil {
		p.space()
		p.formatExpr(c.Operand)
	}

	p.writeln()
	p.indent()

	for _, w := range c.Whens {
		p.kw(token.WHEN)
		p.space()
		p.formatExpr(w.Condition)
		p.space()
		p.kw(token.THEN)
		p.space()
		p.formatExpr(w.Result)
		p.writeln()
	}

	if c.Else != nil {
		p.kw(token.ELSE)
		p.space()
		p.formatExpr(c.Else)
		p.writeln()
	}

	p.dedent()
	p.kw(token.END)
}

func (p *Printer) formatCastExpr(c *core.CastExpr) {
	if c.Operator {
		p.formatExpr(c.Expr)
		p.write("::")
		p.write(c.TypeName)
		return
	}
	if c.Try {
		p.keyword("TRY_CAST")
	} else {
		p.kw(token.CAST)
	}
	p.write("(")
	p.formatExpr(c.Expr)
	p.space()
	p.kw(token.AS)
	p.space()
	p.write(c.TypeName)
	p.write(")")
}

func (p *Printer) formatInExpr(in *core.InExpr) {
	p.formatExpr(in.Expr)
	if in.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.IN)
	p.space()

	if in.Query != nil {
		p.formatSubquery(in.Query)
		return
	}
	p.write("(")
	p.formatExprList(in.Values)
	p.write(")")
}

func (p *Printer) formatBetweenExpr(b *core.BetweenExpr) {
	p.formatExpr(b.Expr)
	if b.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.BETWEEN)
	p.space()
	p.formatExpr(b.Low)
	p.space()
	p.kw(token.AND)
	p.space()
	p.formatExpr(b.High)
}

func (p *Printer) formatIsNullExpr(is *core.IsNullExpr) {
	p.formatExpr(is.Expr)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.NULL)
}

func (p *Printer) formatIsBoolExpr(is *core.IsBoolExpr) {
	p.formatExpr(is.Expr)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	if is.Value {
		p.kw(token.TRUE)
	} else {
		p.kw(token.FALSE)
	}
}

func (p *Printer) formatIsDistinctExpr(is *core.IsDistinctExpr) {
	p.formatExpr(is.Left)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.DISTINCT, token.FROM)
	p.space()
	p.formatExpr(is.Right)
}

func (p *Printer) formatLikeExpr(like *core.LikeExpr) {
	p.formatExpr(like.Expr)
	if like.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.keyword(like.Op)
	if like.Any {
		p.space()
		p.keyword("ANY")
	}
	p.space()
	p.formatExpr(like.Pattern)
	if like.Escape != nil {
		p.space()
		p.keyword("ESCAPE")
		p.space()
		p.formatExpr(like.Escape)
	}
}

func (p *Printer) formatQuantifiedExpr(q *core.QuantifiedExpr) {
	p.formatExpr(q.Left)
	p.space()
	p.kw(q.Op)
	p.space()
	p.keyword(q.Quantifier)
	p.space()
	if q.Query != nil {
		p.formatSubquery(q.Query)
		return
	}
	p.write("(")
	p.formatExprList(q.Values)
	p.write(")")
}

func (p *Printer) formatArrayExpr(arr *core.ArrayExpr) {
	if arr.Query != nil {
		p.keyword("ARRAY")
		p.formatSubquery(arr.Query)
		return
	}
	p.write("[")
	p.formatExprList(arr.Items)
	p.write("]")
}

func (p *Printer) formatStructExpr(s *core.StructExpr) {
	p.write("{")
	p.formatList(len(s.Fields), func(i int) {
		p.write("'" + strings.ReplaceAll(s.Fields[i].Key, "'", "''") + "': ")
		p.formatExpr(s.Fields[i].Value)
	}, ", ", false)
	p.write("}")
}

func (p *Printer) formatIndexExpr(idx *core.IndexExpr) {
	p.formatExpr(idx.Expr)
	p.write("[")
	p.formatExpr(idx.Index)
	if idx.Slice {
		p.write(":")
		p.formatExpr(idx.Upper)
	}
	p.write("]")
}

func (p *Printer) formatJSONAccessExpr(j *core.JSONAccessExpr) {
	p.formatExpr(j.Expr)
	if j.Op == token.COLON {
		// col:a.b keeps its path unquoted
		p.write(":")
		if lit, ok := j.Path.(*core.Literal); ok {
			p.write(lit.Value)
			return
		}
		p.formatExpr(j.Path)
		return
	}
	p.space()
	p.kw(j.Op)
	p.space()
	p.formatExpr(j.Path)
}

// formatSubquery prints a parenthesized query on its own indented lines.
func (p *Printer) formatSubquery(stmt *core.SelectStmt) {
	p.write("(")
	p.writeln()
	p.indent()
	p.formatSelectStmt(stmt)
	p.dedent()
	p.write(")")
}

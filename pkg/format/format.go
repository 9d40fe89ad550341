package format

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Format formats a parsed query as indented, multi-line SQL.
func Format(stmt *core.SelectStmt) string {
	p := newPrinter(false)
	p.formatSelectStmt(stmt)
	return p.String()
}

// Compact renders a query, set expression, table reference or expression
// on a single line. Other nodes render as an empty string.
func Compact(node core.Node) string {
	p := newPrinter(true)
	switch n := node.(type) {
	case *core.SelectStmt:
		p.formatSelectStmt(n)
	case core.SetExpr:
		p.formatSetExpr(n)
	case core.TableRef:
		p.formatTableRef(n)
	case core.Expr:
		p.formatExpr(n)
	}
	return p.String()
}

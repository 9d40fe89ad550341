// Package lineage extracts table and column lineage from parsed SQL.
//
// # Overview
//
// Given one statement from pkg/parser, the package reports the tables it
// reads (inputs), the tables it writes (outputs), the stages and storage
// locations it touches, and for every produced column the columns it
// derives from.
//
//	l, err := lineage.ExtractSQL("INSERT INTO out SELECT a.x AS y FROM src a", lineage.Options{})
//	// l.Inputs:  [src]
//	// l.Outputs: [out]
//	// l.Columns: [out.y <- src.x]
//
// # Architecture
//
// The analysis is split across several files:
//
//   - model.go: TableMeta, ColumnMeta, ExternalMeta and the Lineage result
//   - frame.go: Frame, the per-scope accumulator
//   - context.go: Context, the frame stack and the table/column being resolved
//   - resolve.go: substitution of CTEs and aliased subqueries by real tables
//   - visitor.go: queries, SELECT blocks and FROM items
//   - visitor_expr.go: expressions and subquery expressions
//   - visitor_stmt.go: DML, DDL and COPY statements
//
// A Context is created per statement and threaded through every visit.
// Each query block runs in its own Frame; popped frames are merged into
// the enclosing frame with Collect, CollectWithTable, CollectAliases or
// Coalesce. CTEs and aliased subqueries become synthetic tables whose
// definitions are substituted when their scope is coalesced, so they
// never appear among the final inputs.
//
// # Limitations
//
// There is no catalog: SELECT * produces no column edges, and bare columns
// in a SELECT over several tables, joins included, stay unattributed.
package lineage

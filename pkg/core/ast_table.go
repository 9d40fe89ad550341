package core

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
// Stage references (@stage/path) are table names whose first part starts with @.
type TableName struct {
	NodeInfo
	Name  ObjectName
	Alias Ident
}

func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	NodeInfo
	Select       *SelectStmt
	Alias        Ident
	AliasColumns []Ident // (SELECT ...) AS t(a, b)
}

func (*DerivedTable) tableRefNode() {}

// LateralTable represents a LATERAL subquery.
type LateralTable struct {
	NodeInfo
	Select *SelectStmt
	Alias  Ident
}

func (*LateralTable) tableRefNode() {}

// TableFunction represents a table-valued function call in FROM,
// including TABLE(fn(...)) and LATERAL FLATTEN(...).
type TableFunction struct {
	NodeInfo
	Func  *FuncCall
	Alias Ident
}

func (*TableFunction) tableRefNode() {}

// PivotTable represents a PIVOT operation in FROM clause.
// SELECT * FROM table PIVOT (agg FOR col IN (values))
type PivotTable struct {
	NodeInfo
	Source     TableRef
	Aggregates []*FuncCall
	ForColumn  Expr
	InValues   []Expr
	Alias      Ident
}

func (*PivotTable) tableRefNode() {}

// UnpivotTable represents an UNPIVOT operation in FROM clause.
// SELECT * FROM table UNPIVOT (value FOR name IN (columns))
type UnpivotTable struct {
	NodeInfo
	Source      TableRef
	ValueColumn Ident
	NameColumn  Ident
	InColumns   []Ident
	Alias       Ident
}

func (*UnpivotTable) tableRefNode() {}

// UnnestTable represents UNNEST(expr, ...) in FROM.
type UnnestTable struct {
	NodeInfo
	Exprs          []Expr
	WithOrdinality bool
	Alias          Ident
}

func (*UnnestTable) tableRefNode() {}

// NestedJoin represents a parenthesized join tree: (a JOIN b ON ...).
type NestedJoin struct {
	NodeInfo
	From  *FromClause
	Alias Ident
}

func (*NestedJoin) tableRefNode() {}

package core

// ---------- Query Types ----------

// SelectStmt represents a complete query: an optional WITH clause, a body
// and the trailing ORDER BY / LIMIT / OFFSET / FETCH of the whole query.
type SelectStmt struct {
	NodeInfo
	With    *WithClause
	Body    SetExpr
	OrderBy []OrderByItem
	Limit   Expr
	Offset  Expr
	Fetch   *FetchClause
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	NodeInfo
	Name         Ident
	Columns      []Ident
	Materialized string // "", "MATERIALIZED" or "NOT MATERIALIZED"
	Select       *SelectStmt
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
	SetOpMinus     SetOpType = "MINUS"
)

// SetOperation combines two query bodies: left UNION [ALL] right.
type SetOperation struct {
	NodeInfo
	Op     SetOpType
	All    bool
	ByName bool // DuckDB: UNION BY NAME
	Left   SetExpr
	Right  SetExpr
}

func (*SetOperation) setExprNode() {}

// ParenQuery is a parenthesized query used as a set operand.
type ParenQuery struct {
	NodeInfo
	Select *SelectStmt
}

func (*ParenQuery) setExprNode() {}

// ValuesList represents VALUES (..), (..) used as a query body.
type ValuesList struct {
	NodeInfo
	Rows [][]Expr
}

func (*ValuesList) setExprNode() {}

// TableQuery represents TABLE t used as a query body.
type TableQuery struct {
	NodeInfo
	Name ObjectName
}

func (*TableQuery) setExprNode() {}

// SelectCore represents the core SELECT clause.
type SelectCore struct {
	NodeInfo
	Distinct   bool
	DistinctOn []Expr
	Top        Expr
	Columns    []SelectItem
	Into       ObjectName // SELECT ... INTO t
	From       *FromClause
	Where      Expr
	GroupBy    []Expr
	GroupByAll bool // GROUP BY ALL
	Having     Expr
	Windows    []WindowDef // Named window definitions (WINDOW clause)
	Qualify    Expr        // window function filter
}

func (*SelectCore) setExprNode() {}

// FetchClause represents FETCH FIRST/NEXT n ROWS ONLY/WITH TIES.
type FetchClause struct {
	Count    Expr // nil means one row
	Percent  bool
	WithTies bool
}

// WindowDef represents a named window definition in the WINDOW clause.
type WindowDef struct {
	Name string
	Spec *WindowSpec
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool       // SELECT *
	TableStar ObjectName // SELECT t.*
	Expr      Expr
	Alias     Ident
}

// FromClause represents the FROM clause: a leading source followed by
// joins. Comma-separated sources are joins of type JoinComma.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// Sources returns the number of comma-separated FROM items.
func (f *FromClause) Sources() int {
	if f == nil || f.Source == nil {
		return 0
	}
	n := 1
	for _, j := range f.Joins {
		if j.Type == JoinComma {
			n++
		}
	}
	return n
}

// Join represents a JOIN clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr    // ON clause
	Using     []Ident // USING (col1, col2)
}

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default, true = NULLS FIRST, false = NULLS LAST
}

package core

import "github.com/leapstack-labs/leaplineage/pkg/token"

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
// A bare identifier has an empty Qualifier.
type ColumnRef struct {
	NodeInfo
	Qualifier ObjectName // optional table/alias qualifier, may be schema.table
	Column    Ident
}

func (*ColumnRef) exprNode() {}

// Parts returns the full dotted name of the reference.
func (c *ColumnRef) Parts() ObjectName {
	parts := make(ObjectName, 0, len(c.Qualifier)+1)
	parts = append(parts, c.Qualifier...)
	return append(parts, c.Column)
}

// Literal represents a literal value.
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
	LiteralParam // ?, $1, :name
)

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a prefix unary expression.
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall represents a function call.
// Special forms such as EXTRACT(f FROM x) or SUBSTRING(x FROM 1 FOR 2) are
// normalized to plain argument lists.
type FuncCall struct {
	NodeInfo
	Name        ObjectName
	Distinct    bool
	Args        []Expr
	Star        bool          // COUNT(*)
	OrderBy     []OrderByItem // ordered aggregate: ARRAY_AGG(x ORDER BY y)
	WithinGroup []OrderByItem // LISTAGG(x) WITHIN GROUP (ORDER BY y)
	Filter      Expr          // FILTER (WHERE ...) clause
	Window      *WindowSpec   // OVER clause
}

func (*FuncCall) exprNode() {}

// WindowSpec represents a window specification (OVER clause).
type WindowSpec struct {
	Name        string // Named window reference
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start *FrameBound
	End   *FrameBound
}

// FrameType represents the type of window frame.
type FrameType string

// FrameType constants for window frame specification types.
const (
	FrameRows   FrameType = "ROWS"
	FrameRange  FrameType = "RANGE"
	FrameGroups FrameType = "GROUPS"
)

// FrameBound represents a window frame bound.
type FrameBound struct {
	Type   FrameBoundType
	Offset Expr // for N PRECEDING/FOLLOWING
}

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameBoundType constants for window frame bound types.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FrameExprPreceding      FrameBoundType = "PRECEDING"
	FrameExprFollowing      FrameBoundType = "FOLLOWING"
)

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	NodeInfo
	Operand Expr // CASE operand WHEN... (optional)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in CASE.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents CAST(x AS t), TRY_CAST(x AS t) or x::t.
type CastExpr struct {
	NodeInfo
	Expr     Expr
	TypeName string
	Try      bool // TRY_CAST
	Operator bool // written as x::t
}

func (*CastExpr) exprNode() {}

// InExpr represents x [NOT] IN (values) or x [NOT] IN (subquery).
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr represents x [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr represents x IS [NOT] NULL.
type IsNullExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// IsBoolExpr represents x IS [NOT] TRUE/FALSE.
type IsBoolExpr struct {
	NodeInfo
	Expr  Expr
	Not   bool
	Value bool
}

func (*IsBoolExpr) exprNode() {}

// IsDistinctExpr represents x IS [NOT] DISTINCT FROM y.
type IsDistinctExpr struct {
	NodeInfo
	Left  Expr
	Right Expr
	Not   bool
}

func (*IsDistinctExpr) exprNode() {}

// LikeExpr represents pattern matching: LIKE, ILIKE, RLIKE, REGEXP, SIMILAR TO.
type LikeExpr struct {
	NodeInfo
	Expr    Expr
	Not     bool
	Op      string // LIKE, ILIKE, RLIKE, REGEXP, SIMILAR TO
	Any     bool   // LIKE ANY (...)
	Pattern Expr
	Escape  Expr
}

func (*LikeExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// TupleExpr represents a row constructor: (a, b, c).
type TupleExpr struct {
	NodeInfo
	Items []Expr
}

func (*TupleExpr) exprNode() {}

// StarExpr represents * or t.* inside an expression list.
type StarExpr struct {
	NodeInfo
	Table ObjectName // empty for bare *
}

func (*StarExpr) exprNode() {}

// SubqueryExpr represents a scalar subquery.
type SubqueryExpr struct {
	NodeInfo
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr represents [NOT] EXISTS (subquery).
type ExistsExpr struct {
	NodeInfo
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// QuantifiedExpr represents x op ANY|ALL|SOME (subquery or list).
type QuantifiedExpr struct {
	NodeInfo
	Left       Expr
	Op         token.TokenType
	Quantifier string // ANY, ALL, SOME
	Query      *SelectStmt
	Values     []Expr
}

func (*QuantifiedExpr) exprNode() {}

// ArrayExpr represents ARRAY[...], [...] or ARRAY(subquery).
type ArrayExpr struct {
	NodeInfo
	Items []Expr
	Query *SelectStmt
}

func (*ArrayExpr) exprNode() {}

// StructExpr represents a struct literal: {'a': 1, 'b': x}.
type StructExpr struct {
	NodeInfo
	Fields []StructField
}

func (*StructExpr) exprNode() {}

// StructField is one key/value pair of a struct literal.
type StructField struct {
	Key   string
	Value Expr
}

// IndexExpr represents subscripting: x[i] or x[lo:hi].
type IndexExpr struct {
	NodeInfo
	Expr  Expr
	Index Expr
	Upper Expr // set for slices
	Slice bool
}

func (*IndexExpr) exprNode() {}

// JSONAccessExpr represents semi-structured access: x:a.b, x->'a', x->>'a'.
type JSONAccessExpr struct {
	NodeInfo
	Expr Expr
	Op   token.TokenType // COLON, ARROW, DARROW
	Path Expr
}

func (*JSONAccessExpr) exprNode() {}

// IntervalExpr represents INTERVAL 'n' unit.
type IntervalExpr struct {
	NodeInfo
	Value Expr
	Unit  string
}

func (*IntervalExpr) exprNode() {}

// AtTimeZoneExpr represents x AT TIME ZONE zone.
type AtTimeZoneExpr struct {
	NodeInfo
	Expr Expr
	Zone Expr
}

func (*AtTimeZoneExpr) exprNode() {}

// CollateExpr represents x COLLATE collation.
type CollateExpr struct {
	NodeInfo
	Expr      Expr
	Collation string
}

func (*CollateExpr) exprNode() {}

// GroupingSetsExpr represents GROUPING SETS ((a, b), (c), ()).
type GroupingSetsExpr struct {
	NodeInfo
	Sets [][]Expr
}

func (*GroupingSetsExpr) exprNode() {}

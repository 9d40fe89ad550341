package core

// ---------- Statement Types ----------

// InsertStmt represents INSERT [OVERWRITE] INTO t [(cols)] source.
type InsertStmt struct {
	NodeInfo
	With          *WithClause
	Overwrite     bool
	Table         ObjectName
	Alias         Ident
	Columns       []Ident
	Source        *SelectStmt // a query or a VALUES body
	DefaultValues bool
	Returning     []SelectItem
}

func (*InsertStmt) stmtNode() {}

// Assignment is a single SET target = value pair.
type Assignment struct {
	Column ObjectName
	Value  Expr
}

// UpdateStmt represents UPDATE t SET ... [FROM ...] [WHERE ...].
type UpdateStmt struct {
	NodeInfo
	With        *WithClause
	Table       TableRef
	Joins       []*Join // UPDATE a JOIN b ON ... SET
	Assignments []Assignment
	From        *FromClause
	Where       Expr
	Returning   []SelectItem
}

func (*UpdateStmt) stmtNode() {}

// DeleteStmt represents DELETE [targets] FROM t [USING ...] [WHERE ...].
type DeleteStmt struct {
	NodeInfo
	With      *WithClause
	Tables    []ObjectName // multi-table form: DELETE t1, t2 FROM ...
	From      *FromClause
	Using     *FromClause
	Where     Expr
	Returning []SelectItem
}

func (*DeleteStmt) stmtNode() {}

// MergeAction is the action of a WHEN clause in MERGE.
type MergeAction string

// MergeAction values.
const (
	MergeUpdate    MergeAction = "UPDATE"
	MergeDelete    MergeAction = "DELETE"
	MergeInsert    MergeAction = "INSERT"
	MergeDoNothing MergeAction = "DO NOTHING"
)

// MergeClause is one WHEN [NOT] MATCHED [AND cond] THEN action branch.
type MergeClause struct {
	Matched     bool
	BySource    bool // WHEN NOT MATCHED BY SOURCE
	Condition   Expr
	Action      MergeAction
	Assignments []Assignment // UPDATE SET
	Columns     []Ident      // INSERT (cols)
	Values      []Expr       // INSERT VALUES (...)
}

// MergeStmt represents MERGE INTO target USING source ON cond WHEN ...
type MergeStmt struct {
	NodeInfo
	With    *WithClause
	Target  TableRef
	Source  TableRef
	On      Expr
	Clauses []*MergeClause
}

func (*MergeStmt) stmtNode() {}

// ColumnDef is a column definition in CREATE TABLE.
type ColumnDef struct {
	Name Ident
	Type string
}

// CreateTableStmt represents CREATE TABLE in its plain, AS, LIKE and CLONE forms.
type CreateTableStmt struct {
	NodeInfo
	OrReplace   bool
	Kind        string // "", TEMPORARY, TRANSIENT, EXTERNAL, ...
	IfNotExists bool
	Name        ObjectName
	Columns     []ColumnDef
	Query       *SelectStmt
	Like        ObjectName
	Clone       ObjectName
}

func (*CreateTableStmt) stmtNode() {}

// CreateViewStmt represents CREATE [MATERIALIZED] VIEW name AS query.
type CreateViewStmt struct {
	NodeInfo
	OrReplace    bool
	Materialized bool
	IfNotExists  bool
	Name         ObjectName
	Columns      []Ident
	Query        *SelectStmt
}

func (*CreateViewStmt) stmtNode() {}

// Option is a KEY = value parameter of stage and copy statements.
type Option struct {
	Key   string
	Value string
}

// CreateStageStmt represents CREATE STAGE name [URL = '...'] [options].
type CreateStageStmt struct {
	NodeInfo
	OrReplace   bool
	Temporary   bool
	IfNotExists bool
	Name        ObjectName
	URL         string // unquoted; empty for internal stages
	Options     []Option
}

func (*CreateStageStmt) stmtNode() {}

// AlterOpKind classifies an ALTER TABLE operation.
type AlterOpKind int

// AlterOpKind values.
const (
	AlterOther AlterOpKind = iota
	AlterSwapWith
	AlterRenameTable
)

// AlterOp is one operation of ALTER TABLE.
type AlterOp struct {
	Kind   AlterOpKind
	Target ObjectName // SWAP WITH / RENAME TO target
	Text   string     // source text of other operations
}

// AlterTableStmt represents ALTER TABLE name op [, op ...].
type AlterTableStmt struct {
	NodeInfo
	IfExists   bool
	Name       ObjectName
	Operations []AlterOp
}

func (*AlterTableStmt) stmtNode() {}

// TruncateStmt represents TRUNCATE [TABLE] name [, name ...].
type TruncateStmt struct {
	NodeInfo
	IfExists bool
	Tables   []ObjectName
}

func (*TruncateStmt) stmtNode() {}

// DropStmt represents DROP <object type> [IF EXISTS] name [, name ...].
type DropStmt struct {
	NodeInfo
	ObjectType string // TABLE, VIEW, STAGE, SCHEMA, ...
	IfExists   bool
	Names      []ObjectName
	Cascade    bool
}

func (*DropStmt) stmtNode() {}

// CopyLocation is either side of COPY INTO: a table, a stage or a
// quoted storage location.
type CopyLocation struct {
	Name ObjectName
	// Location is the unquoted URL for literal locations such as 's3://b/p'.
	Location string
}

// IsExternal reports whether the location is a stage or a literal URL.
func (l CopyLocation) IsExternal() bool {
	return l.Location != "" || l.Name.IsStage()
}

// String renders the location as written.
func (l CopyLocation) String() string {
	if l.Location != "" {
		return "'" + l.Location + "'"
	}
	return l.Name.String()
}

// CopyIntoStmt represents COPY INTO target [(cols)] FROM source | (query).
type CopyIntoStmt struct {
	NodeInfo
	Into    CopyLocation
	Columns []Ident
	From    CopyLocation
	Query   *SelectStmt
	Options []Option
}

func (*CopyIntoStmt) stmtNode() {}

// RawStmt is any statement that carries no lineage (GRANT, SET, USE, ...).
// It keeps the leading keyword and the source text.
type RawStmt struct {
	NodeInfo
	Keyword string
	Text    string
}

func (*RawStmt) stmtNode() {}

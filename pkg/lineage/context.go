package lineage

import (
	"errors"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/dialects/ansi"
)

// DefaultStoragePrefixes are the location prefixes recognized as cloud
// storage when no prefixes are configured.
var DefaultStoragePrefixes = []string{"s3://", "gcs://", "azure://"}

// errUnbalancedFrames reports frames left on the stack after a traversal.
var errUnbalancedFrames = errors.New("lineage: frame stack not balanced")

// Context is the state of one statement's analysis: configuration, a
// stack of frames with the root frame at the bottom, and the table and
// column currently being resolved.
//
// A Context is not safe for concurrent use. Use one per statement.
type Context struct {
	dialect         *dialect.Dialect
	defaultSchema   string
	storagePrefixes []string

	frames []Frame

	tableContext  *TableMeta
	columnContext *ColumnMeta
	unnamed       bool

	synthetics int
}

// NewContext returns a Context holding the root frame.
func NewContext(opts Options) *Context {
	d := opts.Dialect
	if d == nil {
		d = ansi.ANSI
	}
	prefixes := opts.StoragePrefixes
	if prefixes == nil {
		prefixes = DefaultStoragePrefixes
	}
	return &Context{
		dialect:         d,
		defaultSchema:   opts.DefaultSchema,
		storagePrefixes: prefixes,
		frames:          []Frame{newFrame()},
	}
}

// Dialect returns the dialect names are normalized with.
func (c *Context) Dialect() *dialect.Dialect { return c.dialect }

// Depth returns the number of frames on the stack.
func (c *Context) Depth() int { return len(c.frames) }

// PushFrame pushes an empty frame.
func (c *Context) PushFrame() {
	c.frames = append(c.frames, newFrame())
}

// PopFrame removes the top frame and returns it. Popping an empty stack is
// a traversal bug and panics.
func (c *Context) PopFrame() Frame {
	if len(c.frames) == 0 {
		panic("lineage: pop on empty frame stack")
	}
	n := len(c.frames) - 1
	f := c.frames[n]
	c.frames[n] = Frame{}
	c.frames = c.frames[:n]
	return f
}

func (c *Context) top() *Frame {
	if len(c.frames) == 0 {
		panic("lineage: empty frame stack")
	}
	return &c.frames[len(c.frames)-1]
}

// aliasKey is the lookup key of an alias or a name that may be one.
func (c *Context) aliasKey(name core.ObjectName) string {
	return strings.Join(c.dialect.NormalizeParts(name), ".")
}

// lookupAlias searches the visible aliases innermost-first.
func (c *Context) lookupAlias(name core.ObjectName) (TableMeta, bool) {
	key := c.aliasKey(name)
	for i := len(c.frames) - 1; i >= 0; i-- {
		if t, ok := c.frames[i].aliases[key]; ok {
			return t, true
		}
	}
	return TableMeta{}, false
}

// ResolveTable returns the table a name refers to: the target of a
// visible alias, or the normalized name itself.
func (c *Context) ResolveTable(name core.ObjectName) TableMeta {
	if t, ok := c.lookupAlias(name); ok {
		return t
	}
	return NewTableMeta(name, c.dialect, c.defaultSchema)
}

// SyntheticTable returns a new stand-in table for a CTE or aliased
// subquery. Each call yields a distinct table, even for the same alias.
func (c *Context) SyntheticTable(alias core.Ident) TableMeta {
	c.synthetics++
	return newSyntheticTable(alias, c.dialect, c.synthetics)
}

// AddInput records a read of name in the top frame and returns the
// resolved table.
func (c *Context) AddInput(name core.ObjectName) TableMeta {
	t := c.ResolveTable(name)
	c.top().inputs.add(t)
	return t
}

// AddOutput records a write of name in the top frame and returns the
// resolved table.
func (c *Context) AddOutput(name core.ObjectName) TableMeta {
	t := c.ResolveTable(name)
	c.top().outputs.add(t)
	return t
}

// AddInputTable records a read of an already resolved table.
func (c *Context) AddInputTable(t TableMeta) {
	c.top().inputs.add(t)
}

// AddExternalInput records a read of a non-relational resource.
func (c *Context) AddExternalInput(name string, tableLike, quoted bool) {
	c.top().externalInputs.add(c.external(name, tableLike, quoted))
}

// AddExternalOutput records a write of a non-relational resource.
func (c *Context) AddExternalOutput(name string, tableLike, quoted bool) {
	c.top().externalOutputs.add(c.external(name, tableLike, quoted))
}

func (c *Context) external(name string, tableLike, quoted bool) ExternalMeta {
	scheme, _ := c.StorageScheme(name)
	return ExternalMeta{Name: name, Scheme: scheme, TableLike: tableLike, Quoted: quoted}
}

// StorageScheme reports whether location starts with a recognized storage
// prefix and returns the scheme without "://".
func (c *Context) StorageScheme(location string) (string, bool) {
	lower := strings.ToLower(location)
	for _, prefix := range c.storagePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return strings.TrimSuffix(strings.ToLower(prefix), "://"), true
		}
	}
	return "", false
}

// AddTableAlias makes alias refer to table in the top frame and in frames
// pushed after it.
func (c *Context) AddTableAlias(table TableMeta, alias core.Ident) {
	c.top().aliases[c.dialect.NormalizeName(alias)] = table
}

// Collect merges a popped frame's tables, resources, column lineage and
// synthetic definitions into the top frame. Aliases are not merged.
func (c *Context) Collect(f Frame) {
	top := c.top()
	top.inputs.union(f.inputs)
	top.outputs.union(f.outputs)
	top.externalInputs.union(f.externalInputs)
	top.externalOutputs.union(f.externalOutputs)
	top.columns.union(f.columns)
	top.intermediates.union(f.intermediates)
	mergeDefinitions(top.definitions, f.definitions)
	if top.projection == nil {
		top.projection = f.projection
	}
}

// CollectWithTable folds a popped frame as the body of the synthetic table
// t. Its reads and resources flow up, its writes are dropped, t becomes an
// alias of itself, and its produced columns are kept as columns of t so
// later references to t resolve through to the real tables.
func (c *Context) CollectWithTable(f Frame, t TableMeta) {
	top := c.top()
	top.inputs.union(f.inputs)
	top.externalInputs.union(f.externalInputs)
	top.externalOutputs.union(f.externalOutputs)
	top.intermediates.union(f.intermediates)
	mergeDefinitions(top.definitions, f.definitions)

	top.aliases[t.parts[len(t.parts)-1]] = t

	defs, ok := top.definitions[t.Key()]
	if !ok {
		defs = make(tableSet)
		top.definitions[t.Key()] = defs
	}
	defs.union(f.inputs)

	for _, e := range f.columns {
		top.intermediates.add(e.descendant.withTable(t), mapValues(e.ancestors)...)
	}
}

// CollectAliases copies a popped frame's aliases into the top frame.
func (c *Context) CollectAliases(f Frame) {
	top := c.top()
	for k, t := range f.aliases {
		top.aliases[k] = t
	}
}

// Coalesce merges a previously popped frame, such as a WITH clause or a
// FROM clause, into the top frame. References to synthetic tables defined
// in either frame are replaced by the real tables behind them, for table
// reads and for column ancestors alike.
func (c *Context) Coalesce(f Frame) {
	top := c.top()
	for k, t := range f.aliases {
		top.aliases[k] = t
	}
	top.inputs.union(f.inputs)
	top.externalInputs.union(f.externalInputs)
	top.externalOutputs.union(f.externalOutputs)
	top.outputs.union(f.outputs)
	top.columns.union(f.columns)
	top.intermediates.union(f.intermediates)
	mergeDefinitions(top.definitions, f.definitions)

	r := resolver{definitions: top.definitions, intermediates: top.intermediates}

	inputs := make(tableSet, len(top.inputs))
	for _, t := range top.inputs {
		inputs.union(r.tables(t, map[string]bool{}))
	}
	top.inputs = inputs

	top.columns = r.columns(top.columns)
}

// SetTableContext sets the default table of bare column references.
// A nil table clears it.
func (c *Context) SetTableContext(t *TableMeta) { c.tableContext = t }

// TableContext returns the default table of bare column references.
func (c *Context) TableContext() *TableMeta { return c.tableContext }

// SetColumnContext sets the produced column currently being derived.
// A nil column clears it.
func (c *Context) SetColumnContext(col *ColumnMeta) {
	c.columnContext = col
	c.unnamed = false
}

// SetUnnamedColumnContext marks the current expression as producing a
// column with no name. Its references are still visited but record no
// edges.
func (c *Context) SetUnnamedColumnContext() {
	c.columnContext = nil
	c.unnamed = true
}

// ClearColumnContext leaves column derivation.
func (c *Context) ClearColumnContext() {
	c.columnContext = nil
	c.unnamed = false
}

// ColumnContext returns the produced column currently being derived.
func (c *Context) ColumnContext() *ColumnMeta { return c.columnContext }

// IsUnnamed reports whether the current expression produces an unnamed column.
func (c *Context) IsUnnamed() bool { return c.unnamed }

// AddColumnAncestors records ancestors of the current column context.
// Without a named column context nothing is recorded.
func (c *Context) AddColumnAncestors(ancestors ...ColumnMeta) {
	if c.columnContext == nil {
		return
	}
	c.top().columns.add(*c.columnContext, ancestors...)
}

// AddColumnLineage records ancestors of an explicit descendant column,
// independently of the column context.
func (c *Context) AddColumnLineage(desc ColumnMeta, ancestors ...ColumnMeta) {
	c.top().columns.add(desc, ancestors...)
}

// Column normalizes a column name and ties it to table when one is given.
func (c *Context) Column(name core.Ident, table *TableMeta) ColumnMeta {
	col := ColumnMeta{Name: c.dialect.NormalizeName(name)}
	if table != nil {
		col.Table = table
	}
	return col
}

// setProjection records the produced column names of a SELECT.
func (c *Context) setProjection(names []string) {
	c.top().projection = names
}

// Finish pops the root frame and returns the statement's lineage.
func (c *Context) Finish() (*Lineage, error) {
	if len(c.frames) != 1 {
		return nil, errUnbalancedFrames
	}
	root := c.PopFrame()
	return root.lineage(), nil
}

func (f *Frame) lineage() *Lineage {
	l := &Lineage{
		Inputs:          realTables(f.inputs),
		Outputs:         realTables(f.outputs),
		ExternalInputs:  externals(f.externalInputs),
		ExternalOutputs: externals(f.externalOutputs),
		Columns:         []ColumnLineage{},
	}
	for _, e := range f.columns {
		if len(e.ancestors) == 0 {
			continue
		}
		seen := make(map[string]bool, len(e.ancestors))
		ancestors := make([]ColumnMeta, 0, len(e.ancestors))
		for _, a := range e.ancestors {
			// unresolved synthetic origins are unattributed
			if a.Table != nil && a.Table.synthetic {
				a = ColumnMeta{Name: a.Name}
			}
			if seen[a.Key()] {
				continue
			}
			seen[a.Key()] = true
			ancestors = append(ancestors, a)
		}
		sortColumns(ancestors)
		l.Columns = append(l.Columns, ColumnLineage{Descendant: e.descendant, Ancestors: ancestors})
	}
	sort.Slice(l.Columns, func(i, j int) bool {
		return l.Columns[i].Descendant.String() < l.Columns[j].Descendant.String()
	})
	return l
}

func realTables(s tableSet) []TableMeta {
	tables := make([]TableMeta, 0, len(s))
	for _, t := range s {
		if !t.synthetic {
			tables = append(tables, t)
		}
	}
	sortTables(tables)
	return tables
}

func externals(s externalSet) []ExternalMeta {
	ext := make([]ExternalMeta, 0, len(s))
	for _, e := range s {
		ext = append(ext, e)
	}
	sortExternals(ext)
	return ext
}

func mergeDefinitions(dst, src map[string]tableSet) {
	for k, defs := range src {
		if existing, ok := dst[k]; ok {
			existing.union(defs)
			continue
		}
		dst[k] = defs.clone()
	}
}

func mapValues(m map[string]ColumnMeta) []ColumnMeta {
	cols := make([]ColumnMeta, 0, len(m))
	for _, c := range m {
		cols = append(cols, c)
	}
	return cols
}

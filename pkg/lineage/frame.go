package lineage

// tableSet is a set of tables keyed by TableMeta.Key.
type tableSet map[string]TableMeta

func (s tableSet) add(t TableMeta) { s[t.Key()] = t }

func (s tableSet) union(other tableSet) {
	for k, t := range other {
		s[k] = t
	}
}

func (s tableSet) clone() tableSet {
	c := make(tableSet, len(s))
	c.union(s)
	return c
}

type externalSet map[string]ExternalMeta

func (s externalSet) add(e ExternalMeta) { s[e.key()] = e }

func (s externalSet) union(other externalSet) {
	for k, e := range other {
		s[k] = e
	}
}

// columnEdges holds the ancestors of one descendant column.
type columnEdges struct {
	descendant ColumnMeta
	ancestors  map[string]ColumnMeta
}

// columnMap maps a descendant key to its edges.
type columnMap map[string]*columnEdges

func (m columnMap) edges(desc ColumnMeta) *columnEdges {
	e, ok := m[desc.Key()]
	if !ok {
		e = &columnEdges{descendant: desc, ancestors: make(map[string]ColumnMeta)}
		m[desc.Key()] = e
	}
	return e
}

func (m columnMap) add(desc ColumnMeta, ancestors ...ColumnMeta) {
	e := m.edges(desc)
	for _, a := range ancestors {
		e.ancestors[a.Key()] = a
	}
}

func (m columnMap) union(other columnMap) {
	for _, e := range other {
		for _, a := range e.ancestors {
			m.add(e.descendant, a)
		}
		m.edges(e.descendant)
	}
}

// Frame accumulates the lineage facts of one query block.
//
// Frames are values: PopFrame moves a frame off the stack and the caller
// hands it to exactly one of Collect, CollectWithTable, CollectAliases or
// Coalesce.
type Frame struct {
	inputs          tableSet
	outputs         tableSet
	externalInputs  externalSet
	externalOutputs externalSet
	aliases         map[string]TableMeta
	columns         columnMap

	// intermediates records the columns of synthetic tables, keyed by
	// (column, synthetic table).
	intermediates columnMap
	// definitions maps a synthetic table key to the tables it reads.
	definitions map[string]tableSet

	// projection lists the produced column names of the last SELECT in
	// positional order. Unnamed expressions are empty strings.
	projection []string
}

func newFrame() Frame {
	return Frame{
		inputs:          make(tableSet),
		outputs:         make(tableSet),
		externalInputs:  make(externalSet),
		externalOutputs: make(externalSet),
		aliases:         make(map[string]TableMeta),
		columns:         make(columnMap),
		intermediates:   make(columnMap),
		definitions:     make(map[string]tableSet),
	}
}

// Inputs returns the tables read in the frame.
func (f *Frame) Inputs() []TableMeta { return sortedTables(f.inputs) }

// Outputs returns the tables written in the frame.
func (f *Frame) Outputs() []TableMeta { return sortedTables(f.outputs) }

// Alias returns the table an alias registered in this frame refers to.
func (f *Frame) Alias(name string) (TableMeta, bool) {
	t, ok := f.aliases[name]
	return t, ok
}

// Aliases returns the number of aliases registered in the frame.
func (f *Frame) Aliases() int { return len(f.aliases) }

// Projection returns the produced column names in positional order.
func (f *Frame) Projection() []string { return f.projection }

// dropColumns discards the frame's produced columns, keeping table facts
// and synthetic definitions.
func (f *Frame) dropColumns() {
	f.columns = make(columnMap)
	f.projection = nil
}

// renameProjection renames produced columns positionally. Positions
// without a new name lose their lineage.
func (f *Frame) renameProjection(names []string) {
	renamed := make(columnMap)
	for i, old := range f.projection {
		if old == "" {
			continue
		}
		e, ok := f.columns[ColumnMeta{Name: old}.Key()]
		if !ok {
			continue
		}
		delete(f.columns, e.descendant.Key())
		if i >= len(names) || names[i] == "" {
			continue
		}
		for _, a := range e.ancestors {
			renamed.add(ColumnMeta{Name: names[i]}, a)
		}
	}
	f.columns.union(renamed)
	f.projection = append([]string(nil), names...)
}

// attributeColumns ties every unattributed produced column to table.
func (f *Frame) attributeColumns(table TableMeta) {
	for k, e := range f.columns {
		if e.descendant.Table != nil {
			continue
		}
		delete(f.columns, k)
		for _, a := range e.ancestors {
			f.columns.add(e.descendant.withTable(table), a)
		}
	}
}

func sortedTables(s tableSet) []TableMeta {
	tables := make([]TableMeta, 0, len(s))
	for _, t := range s {
		tables = append(tables, t)
	}
	sortTables(tables)
	return tables
}

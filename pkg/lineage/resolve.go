package lineage

// resolver replaces synthetic tables by the tables behind them.
type resolver struct {
	definitions   map[string]tableSet
	intermediates columnMap
}

// tables expands t into the tables it reads. Tables without a definition
// are returned as they are.
func (r resolver) tables(t TableMeta, seen map[string]bool) tableSet {
	out := make(tableSet)
	defs, ok := r.definitions[t.Key()]
	if !ok {
		out.add(t)
		return out
	}
	if seen[t.Key()] {
		return out
	}
	seen[t.Key()] = true
	for _, u := range defs {
		out.union(r.tables(u, seen))
	}
	return out
}

func (r resolver) columns(m columnMap) columnMap {
	out := make(columnMap, len(m))
	for _, e := range m {
		out.edges(e.descendant)
		for _, a := range e.ancestors {
			out.add(e.descendant, r.column(a, map[string]bool{})...)
		}
	}
	return out
}

// column resolves one ancestor. A column of a synthetic table resolves to
// the ancestors recorded for it; a column the body did not name resolves
// through a single-table body to that table, and is unattributed otherwise.
func (r resolver) column(a ColumnMeta, seen map[string]bool) []ColumnMeta {
	if a.Table == nil {
		return []ColumnMeta{a}
	}
	defs, ok := r.definitions[a.Table.Key()]
	if !ok {
		return []ColumnMeta{a}
	}
	if seen[a.Key()] {
		return nil
	}
	seen[a.Key()] = true

	if e, ok := r.intermediates[a.Key()]; ok {
		var out []ColumnMeta
		for _, anc := range e.ancestors {
			out = append(out, r.column(anc, seen)...)
		}
		return out
	}
	if len(defs) == 1 {
		for _, u := range defs {
			return r.column(a.withTable(u), seen)
		}
	}
	return []ColumnMeta{{Name: a.Name}}
}

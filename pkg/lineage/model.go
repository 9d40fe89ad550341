package lineage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

// TableMeta is a normalized table identifier.
//
// Parts are folded with the dialect's identifier rules, and a single-part
// name gains the default schema. Two TableMeta values refer to the same
// table iff their Key values are equal.
type TableMeta struct {
	parts   []string
	dialect string
	// synthetic marks names that stand in for a CTE or an aliased subquery.
	synthetic bool
	// serial tells apart synthetic tables sharing a name in nested scopes.
	serial int
}

// NewTableMeta builds a normalized table name from its source parts.
func NewTableMeta(name core.ObjectName, d *dialect.Dialect, defaultSchema string) TableMeta {
	parts := d.NormalizeParts(name)
	if len(parts) == 1 && defaultSchema != "" {
		parts = []string{d.NormalizeName(core.NewIdent(defaultSchema)), parts[0]}
	}
	return TableMeta{parts: parts, dialect: d.Name}
}

func newSyntheticTable(alias core.Ident, d *dialect.Dialect, serial int) TableMeta {
	return TableMeta{parts: []string{d.NormalizeName(alias)}, dialect: d.Name, synthetic: true, serial: serial}
}

// Parts returns the normalized name parts.
func (t TableMeta) Parts() []string { return t.parts }

// Dialect returns the name of the dialect the table was normalized with.
func (t TableMeta) Dialect() string { return t.dialect }

// Name returns the dotted qualified name.
func (t TableMeta) Name() string { return strings.Join(t.parts, ".") }

// Key identifies the table in sets and maps. Synthetic tables are unique
// per definition, so two CTEs or subqueries with the same alias never
// share a key.
func (t TableMeta) Key() string {
	k := strings.Join(t.parts, "\x00")
	if t.synthetic {
		return "\x01" + k + "\x01" + strconv.Itoa(t.serial)
	}
	return k
}

// IsZero reports whether t holds no name.
func (t TableMeta) IsZero() bool { return len(t.parts) == 0 }

// String implements fmt.Stringer.
func (t TableMeta) String() string { return t.Name() }

// MarshalText renders the table as its qualified name.
func (t TableMeta) MarshalText() ([]byte, error) {
	return []byte(t.Name()), nil
}

// ColumnMeta is a column reference with an optional owning table.
type ColumnMeta struct {
	Name  string     `json:"name" yaml:"name"`
	Table *TableMeta `json:"table,omitempty" yaml:"table,omitempty"`
}

// NewColumnMeta returns a column of the given table. A zero table leaves
// the column unattributed.
func NewColumnMeta(name string, table TableMeta) ColumnMeta {
	c := ColumnMeta{Name: name}
	if !table.IsZero() {
		c.Table = &table
	}
	return c
}

// Key identifies the column in sets and maps.
func (c ColumnMeta) Key() string {
	if c.Table == nil {
		return "\x00" + c.Name
	}
	return c.Table.Key() + "\x02" + c.Name
}

// String renders table.column, or the bare name when unattributed.
func (c ColumnMeta) String() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.Name() + "." + c.Name
}

func (c ColumnMeta) withTable(t TableMeta) ColumnMeta {
	return NewColumnMeta(c.Name, t)
}

// ExternalMeta is a non-relational resource taking part in a statement,
// such as a stage or a storage location.
type ExternalMeta struct {
	Name string `json:"name" yaml:"name"`
	// Scheme is the recognized storage scheme ("s3", "gcs", ...) of a
	// literal location, empty otherwise.
	Scheme    string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	TableLike bool   `json:"table_like" yaml:"table_like"`
	Quoted    bool   `json:"quoted" yaml:"quoted"`
}

func (e ExternalMeta) key() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, flag := range []bool{e.TableLike, e.Quoted} {
		if flag {
			b.WriteString("\x00t")
		} else {
			b.WriteString("\x00f")
		}
	}
	return b.String()
}

// ColumnLineage lists the ancestors one produced column derives from.
type ColumnLineage struct {
	Descendant ColumnMeta   `json:"descendant" yaml:"descendant"`
	Ancestors  []ColumnMeta `json:"ancestors" yaml:"ancestors"`
}

// Lineage is the result of analyzing one statement. Every list is sorted.
type Lineage struct {
	Inputs          []TableMeta     `json:"inputs" yaml:"inputs"`
	Outputs         []TableMeta     `json:"outputs" yaml:"outputs"`
	ExternalInputs  []ExternalMeta  `json:"external_inputs" yaml:"external_inputs"`
	ExternalOutputs []ExternalMeta  `json:"external_outputs" yaml:"external_outputs"`
	Columns         []ColumnLineage `json:"columns" yaml:"columns"`
}

// IsEmpty reports whether the statement touches no table or resource.
func (l *Lineage) IsEmpty() bool {
	return len(l.Inputs) == 0 && len(l.Outputs) == 0 &&
		len(l.ExternalInputs) == 0 && len(l.ExternalOutputs) == 0 &&
		len(l.Columns) == 0
}

// InputNames returns the qualified names of the input tables.
func (l *Lineage) InputNames() []string { return tableNames(l.Inputs) }

// OutputNames returns the qualified names of the output tables.
func (l *Lineage) OutputNames() []string { return tableNames(l.Outputs) }

// Column returns the lineage recorded for the named produced column.
func (l *Lineage) Column(name string) (ColumnLineage, bool) {
	for _, c := range l.Columns {
		if c.Descendant.Name == name {
			return c, true
		}
	}
	return ColumnLineage{}, false
}

func tableNames(tables []TableMeta) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name()
	}
	return names
}

func sortTables(tables []TableMeta) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name() < tables[j].Name() })
}

func sortColumns(cols []ColumnMeta) {
	sort.Slice(cols, func(i, j int) bool { return cols[i].String() < cols[j].String() })
}

func sortExternals(ext []ExternalMeta) {
	sort.Slice(ext, func(i, j int) bool { return ext[i].key() < ext[j].key() })
}

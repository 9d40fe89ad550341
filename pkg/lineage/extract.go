package lineage

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/parser"
)

// Options configures one extraction.
type Options struct {
	// Dialect governs identifier folding. Nil means ANSI.
	Dialect *dialect.Dialect
	// DefaultSchema is prepended to unqualified table names when set.
	DefaultSchema string
	// StoragePrefixes lists the location prefixes treated as cloud storage
	// in COPY statements. Nil means DefaultStoragePrefixes.
	StoragePrefixes []string
}

// Extract computes the lineage of one parsed statement.
func Extract(stmt core.Stmt, opts Options) (*Lineage, error) {
	c := NewContext(opts)
	if err := Visit(c, stmt); err != nil {
		return nil, err
	}
	return c.Finish()
}

// ExtractSQL parses a single statement with the configured dialect and
// computes its lineage.
func ExtractSQL(sql string, opts Options) (*Lineage, error) {
	stmt, err := parser.Parse(sql, opts.Dialect)
	if err != nil {
		return nil, err
	}
	return Extract(stmt, opts)
}

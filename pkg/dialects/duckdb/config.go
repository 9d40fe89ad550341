// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import "github.com/leapstack-labs/leaplineage/pkg/core"

// Config is the DuckDB dialect configuration.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	Keywords: []string{
		"QUALIFY", "ILIKE", "SIMILAR",
		"PIVOT", "UNPIVOT",
		"SEMI", "ANTI", "ASOF", "POSITIONAL",
		"SAMPLE", "TABLESAMPLE",
	},
}

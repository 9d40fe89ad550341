// Package databricks provides the Databricks SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package databricks

import "github.com/leapstack-labs/leaplineage/pkg/core"

// Config is the Databricks SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "databricks",
	DefaultSchema: "default",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: core.NormCaseInsensitive,
	},
	Keywords: []string{
		"QUALIFY", "ILIKE", "RLIKE", "REGEXP",
		"PIVOT", "UNPIVOT", "MINUS",
		"SEMI", "ANTI", "TABLESAMPLE",
	},
}

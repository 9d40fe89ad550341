package duckdb

import "github.com/leapstack-labs/leaplineage/pkg/dialect"

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB SQL dialect.
var DuckDB = dialect.FromConfig(Config).Build()

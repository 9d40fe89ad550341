// Package all registers every built-in dialect.
//
// Import it for side effects:
//
//	import _ "github.com/leapstack-labs/leaplineage/pkg/dialects/all"
package all

import (
	_ "github.com/leapstack-labs/leaplineage/pkg/dialects/ansi"       // register ansi
	_ "github.com/leapstack-labs/leaplineage/pkg/dialects/databricks" // register databricks
	_ "github.com/leapstack-labs/leaplineage/pkg/dialects/duckdb"     // register duckdb
	_ "github.com/leapstack-labs/leaplineage/pkg/dialects/postgres"   // register postgres
	_ "github.com/leapstack-labs/leaplineage/pkg/dialects/snowflake"  // register snowflake
)

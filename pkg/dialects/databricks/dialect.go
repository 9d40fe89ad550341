package databricks

import "github.com/leapstack-labs/leaplineage/pkg/dialect"

func init() {
	dialect.Register(Databricks)
}

// Databricks is the Databricks SQL dialect.
var Databricks = dialect.FromConfig(Config).Build()

package snowflake

import "github.com/leapstack-labs/leaplineage/pkg/dialect"

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake SQL dialect.
// Stages, COPY INTO and CREATE STAGE are parsed for every dialect; the
// dialect only contributes keywords and identifier rules.
var Snowflake = dialect.FromConfig(Config).Build()

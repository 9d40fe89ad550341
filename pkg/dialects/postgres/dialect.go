package postgres

import "github.com/leapstack-labs/leaplineage/pkg/dialect"

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.FromConfig(Config).Build()

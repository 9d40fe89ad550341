// Package ansi provides the base ANSI SQL dialect.
//
// ANSI is the default dialect: double-quoted identifiers, unquoted names
// folded to lowercase and no dialect-specific keywords.
package ansi

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

func init() {
	dialect.Register(ANSI)
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.NewDialect("ansi").
	Identifiers(`"`, `"`, `""`, core.NormLowercase).
	Build()

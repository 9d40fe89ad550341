// Package core defines the shared language of leaplineage.
//
// This package contains:
//   - The SQL syntax tree produced by pkg/parser (statements, queries,
//     table references and expressions)
//   - Identifier and qualified-name types
//   - Dialect configuration data (quoting and normalization rules)
//
// The tree is a closed set of node types. Consumers dispatch with type
// switches and treat any unknown node as an error.
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core

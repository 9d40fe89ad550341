package core

import (
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TableRef is a marker interface for FROM clause items.
type TableRef interface {
	Node
	tableRefNode()
}

// SetExpr is a marker interface for query bodies: a SELECT core, a set
// operation, a parenthesized query, a VALUES list or TABLE t.
type SetExpr interface {
	Node
	setExprNode()
}

// NodeInfo carries source location for a node.
// Embedding it gives a node its Pos and End methods.
type NodeInfo struct {
	Span token.Span
}

// Pos implements Node.
func (n NodeInfo) Pos() token.Position { return n.Span.Start }

// End implements Node.
func (n NodeInfo) End() token.Position { return n.Span.End }

// Ident is a single identifier as written in the source.
type Ident struct {
	Value string
	// Quote is the opening quote character (", `, [ or ') or 0 when unquoted.
	Quote rune
}

// NewIdent returns an unquoted identifier.
func NewIdent(value string) Ident {
	return Ident{Value: value}
}

// IsQuoted reports whether the identifier was quoted in the source.
func (i Ident) IsQuoted() bool { return i.Quote != 0 }

// IsEmpty reports whether the identifier holds no name.
func (i Ident) IsEmpty() bool { return i.Value == "" }

// String renders the identifier with its original quoting.
func (i Ident) String() string {
	switch i.Quote {
	case 0:
		return i.Value
	case '[':
		return "[" + strings.ReplaceAll(i.Value, "]", "]]") + "]"
	default:
		q := string(i.Quote)
		return q + strings.ReplaceAll(i.Value, q, q+q) + q
	}
}

// ObjectName is a possibly qualified name such as db.schema.table.
type ObjectName []Ident

// NewObjectName builds an unquoted name from dotted parts.
func NewObjectName(parts ...string) ObjectName {
	name := make(ObjectName, len(parts))
	for i, p := range parts {
		name[i] = NewIdent(p)
	}
	return name
}

// String renders the name with its original quoting.
func (n ObjectName) String() string {
	parts := make([]string, len(n))
	for i, id := range n {
		parts[i] = id.String()
	}
	return strings.Join(parts, ".")
}

// Last returns the final part of the name.
func (n ObjectName) Last() Ident {
	if len(n) == 0 {
		return Ident{}
	}
	return n[len(n)-1]
}

// IsStage reports whether the name refers to a stage (@stage, @~, @%table).
func (n ObjectName) IsStage() bool {
	return len(n) > 0 && strings.HasPrefix(n[0].Value, "@")
}

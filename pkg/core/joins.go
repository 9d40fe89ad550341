package core

// JoinType represents the type of join.
// The value is the SQL keyword (e.g., "LEFT", "INNER", "SEMI").
type JoinType string

// Standard and extended join types.
const (
	JoinInner      JoinType = "INNER"
	JoinLeft       JoinType = "LEFT"
	JoinRight      JoinType = "RIGHT"
	JoinFull       JoinType = "FULL"
	JoinCross      JoinType = "CROSS"
	JoinSemi       JoinType = "SEMI"
	JoinAnti       JoinType = "ANTI"
	JoinAsOf       JoinType = "ASOF"
	JoinPositional JoinType = "POSITIONAL"

	// JoinComma represents an implicit cross join using comma syntax.
	JoinComma JoinType = ","
)

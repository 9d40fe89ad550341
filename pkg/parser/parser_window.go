package parser

import (
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Window specification parsing: OVER clauses, PARTITION BY, ORDER BY, frame specs.
//
// Grammar:
//
//	window_spec   → identifier | "(" [identifier] [PARTITION BY expr_list] [ORDER BY order_list] [frame_spec] ")"
//	window_defs   → identifier AS window_spec ("," identifier AS window_spec)*
//	frame_spec    → (ROWS|RANGE|GROUPS) frame_extent [EXCLUDE ...]
//	frame_extent  → BETWEEN frame_bound AND frame_bound | frame_bound
//	frame_bound   → UNBOUNDED PRECEDING | UNBOUNDED FOLLOWING | CURRENT ROW | expr PRECEDING | expr FOLLOWING

// parseWindowSpec parses a window specification.
func (p *Parser) parseWindowSpec() *core.WindowSpec {
	spec := &core.WindowSpec{}

	// Named window reference
	if !p.check(token.LPAREN) {
		spec.Name = p.parseIdent().Value
		return spec
	}

	p.expect(token.LPAREN)

	// Base window: OVER (w ORDER BY ...)
	if p.token.Type == token.IDENT {
		spec.Name = p.parseIdent().Value
	}

	// PARTITION BY
	if p.match(token.PARTITION) {
		p.expect(token.BY)
		spec.PartitionBy = p.parseExpressionList()
	}

	// ORDER BY
	if p.match(token.ORDER) {
		p.expect(token.BY)
		spec.OrderBy = p.parseOrderByList()
	}

	// Frame specification
	if p.check(token.ROWS) || p.check(token.RANGE) || p.check(token.GROUPS) {
		spec.Frame = p.parseFrameSpec()
	}

	p.expect(token.RPAREN)
	return spec
}

// parseWindowDefs parses the WINDOW clause after WINDOW.
func (p *Parser) parseWindowDefs() []core.WindowDef {
	var defs []core.WindowDef
	for {
		def := core.WindowDef{Name: p.parseIdent().Value}
		p.expect(token.AS)
		def.Spec = p.parseWindowSpec()
		defs = append(defs, def)
		if !p.match(token.COMMA) {
			break
		}
	}
	return defs
}

// parseFrameSpec parses a window frame specification.
func (p *Parser) parseFrameSpec() *core.FrameSpec {
	frame := &core.FrameSpec{}

	// Frame type
	switch {
	case p.match(token.ROWS):
		frame.Type = core.FrameRows
	case p.match(token.RANGE):
		frame.Type = core.FrameRange
	case p.match(token.GROUPS):
		frame.Type = core.FrameGroups
	}

	// BETWEEN ... AND ...
	if p.match(token.BETWEEN) {
		frame.Start = p.parseFrameBound()
		p.expect(token.AND)
		frame.End = p.parseFrameBound()
	} else {
		// Single bound
		frame.Start = p.parseFrameBound()
	}

	// EXCLUDE CURRENT ROW | GROUP | TIES | NO OTHERS
	if p.matchWord("EXCLUDE") {
		switch {
		case p.match(token.CURRENT):
			p.expect(token.ROW)
		case p.match(token.GROUP), p.matchWord("TIES"):
		default:
			p.expectWord("NO")
			p.expectWord("OTHERS")
		}
	}

	return frame
}

// parseFrameBound parses a frame bound.
func (p *Parser) parseFrameBound() *core.FrameBound {
	bound := &core.FrameBound{}

	switch {
	case p.match(token.UNBOUNDED):
		if p.match(token.PRECEDING) {
			bound.Type = core.FrameUnboundedPreceding
		} else {
			p.expect(token.FOLLOWING)
			bound.Type = core.FrameUnboundedFollowing
		}

	case p.match(token.CURRENT):
		p.expect(token.ROW)
		bound.Type = core.FrameCurrentRow

	default:
		// N PRECEDING or N FOLLOWING
		bound.Offset = p.parseExpressionWithPrecedence(precBitwise)
		if p.match(token.PRECEDING) {
			bound.Type = core.FrameExprPreceding
		} else {
			p.expect(token.FOLLOWING)
			bound.Type = core.FrameExprFollowing
		}
	}

	return bound
}

// Package format renders pkg/core AST nodes back to SQL.
//
// Format produces indented, multi-line SQL for queries. Compact renders any
// expression, table reference or query on a single line, which is what
// error messages and table output use.
package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/token"
)

const indentSize = 2

// Printer handles SQL formatting with proper indentation and style.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
	// compact renders everything on one line: line breaks become single
	// spaces, emitted lazily so that "(" and ")" stay tight.
	compact      bool
	pendingSpace bool
}

func newPrinter(compact bool) *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
		compact:     compact,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	if p.compact {
		return strings.TrimSpace(p.output.String())
	}
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *Printer) write(s string) {
	if len(s) == 0 {
		return
	}
	if p.pendingSpace {
		p.pendingSpace = false
		if s[0] != ')' && s[0] != ',' && s[0] != ' ' && !p.lastByteIs('(') && !p.lastByteIs(' ') {
			p.output.WriteByte(' ')
		}
	}
	if p.atLineStart && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if p.compact {
		p.pendingSpace = p.output.Len() > 0
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	if !p.compact {
		for i := 0; i < p.depth*indentSize; i++ {
			p.output.WriteByte(' ')
		}
	}
	p.atLineStart = false
}

func (p *Printer) keyword(s string) {
	p.write(strings.ToUpper(s))
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	if p.compact {
		p.pendingSpace = p.output.Len() > 0
		return
	}
	p.output.WriteByte(' ')
}

func (p *Printer) lastByteIs(c byte) bool {
	b := p.output.Bytes()
	return len(b) > 0 && b[len(b)-1] == c
}

// kw prints a keyword based on the token type.
func (p *Printer) kw(tokens ...token.TokenType) {
	for i, t := range tokens {
		if i > 0 {
			p.space()
		}
		p.write(t.String())
	}
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}

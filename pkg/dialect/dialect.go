// Package dialect provides SQL dialect configuration and identifier normalization.
//
// This package contains the public contract for dialect definitions used by the
// parser and the lineage extractor. Concrete dialects are registered from
// pkg/dialects/*/ packages.
package dialect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/token"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	core.DialectConfig

	// keywords maps lowercase dialect keywords to their dynamic tokens.
	keywords map[string]token.TokenType

	lower cases.Caser
	upper cases.Caser
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	config   core.DialectConfig
	keywords []string
}

// NewDialect starts building a new dialect with the given name.
// Identifiers default to ANSI double quotes with lowercase normalization.
func NewDialect(name string) *Builder {
	return &Builder{
		config: core.DialectConfig{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
		},
	}
}

// FromConfig starts building a dialect from static configuration.
func FromConfig(cfg *core.DialectConfig) *Builder {
	b := &Builder{config: *cfg}
	b.keywords = append(b.keywords, cfg.Keywords...)
	return b
}

// Identifiers sets quoting and normalization rules.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.config.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the schema unqualified names live in.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.config.DefaultSchema = schema
	return b
}

// Keywords adds dialect keywords (QUALIFY, ILIKE, ...).
func (b *Builder) Keywords(words ...string) *Builder {
	b.keywords = append(b.keywords, words...)
	return b
}

// Build finalizes the dialect, registering its keywords as dynamic tokens.
func (b *Builder) Build() *Dialect {
	d := &Dialect{
		DialectConfig: b.config,
		keywords:      make(map[string]token.TokenType, len(b.keywords)),
		lower:         cases.Lower(language.Und),
		upper:         cases.Upper(language.Und),
	}
	d.Keywords = nil
	for _, kw := range b.keywords {
		upper := strings.ToUpper(kw)
		d.keywords[strings.ToLower(kw)] = token.Register(upper)
		d.Keywords = append(d.Keywords, upper)
	}
	return d
}

// LookupKeyword returns the dynamic token for a lowercase dialect keyword.
func (d *Dialect) LookupKeyword(lower string) (token.TokenType, bool) {
	t, ok := d.keywords[lower]
	return t, ok
}

// HasKeyword reports whether the dialect enables the named keyword.
func (d *Dialect) HasKeyword(name string) bool {
	_, ok := d.keywords[strings.ToLower(name)]
	return ok
}

// QuoteChars returns the identifier quote characters accepted by the lexer
// in addition to the ANSI double quote.
func (d *Dialect) QuoteChars() (open, close byte) {
	q, qe := d.Identifiers.Quote, d.Identifiers.QuoteEnd
	if q == "" {
		return '"', '"'
	}
	if qe == "" {
		qe = q
	}
	return q[0], qe[0]
}

// NormalizeName normalizes an identifier according to the dialect's rules.
// Quoted identifiers keep their case unless the dialect is case-insensitive.
func (d *Dialect) NormalizeName(id core.Ident) string {
	switch d.Identifiers.Normalization {
	case core.NormCaseSensitive:
		return id.Value
	case core.NormCaseInsensitive:
		return d.lower.String(id.Value)
	case core.NormUppercase:
		if id.IsQuoted() {
			return id.Value
		}
		return d.upper.String(id.Value)
	default:
		if id.IsQuoted() {
			return id.Value
		}
		return d.lower.String(id.Value)
	}
}

// NormalizeParts normalizes every part of a qualified name.
func (d *Dialect) NormalizeParts(name core.ObjectName) []string {
	parts := make([]string, len(name))
	for i, id := range name {
		parts[i] = d.NormalizeName(id)
	}
	return parts
}

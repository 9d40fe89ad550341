// Package output renders command results for terminals, pipes and
// machine consumers.
//
// A Renderer is created per command from the configured Mode. ModeAuto
// resolves to styled text on a terminal and to markdown otherwise, so
// piping a command into a file or another tool never produces escape codes.
package output

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects an output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Modes lists every accepted mode.
var Modes = []Mode{ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML}

// ParseMode parses a mode name. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAuto, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Modes, m) {
		return "", fmt.Errorf("unknown output format %q (expected one of %s)", s, strings.Join(ModeNames(), ", "))
	}
	return m, nil
}

// ModeNames returns the accepted mode names.
func ModeNames() []string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return names
}

// IsStructured reports whether the mode emits machine-readable data.
func (m Mode) IsStructured() bool {
	return m == ModeJSON || m == ModeYAML
}

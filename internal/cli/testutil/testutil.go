// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
)

// SampleScripts are the SQL files written by SetupTestProject.
var SampleScripts = map[string]string{
	"staging.sql": `INSERT INTO stg_customers (customer_id, customer_name)
SELECT id, name FROM raw_customers;

INSERT INTO stg_orders
SELECT o.id AS order_id, o.customer_id, o.amount FROM raw_orders o;`,
	"marts.sql": `CREATE TABLE customer_totals AS
SELECT c.customer_id, SUM(o.amount) AS total
FROM stg_customers c JOIN stg_orders o ON o.customer_id = c.customer_id
GROUP BY c.customer_id;`,
}

// SetupTestProject creates a temporary project with a config file and
// sample SQL scripts. The returned directory is the project root.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	sqlDir := filepath.Join(tmpDir, "sql")
	if err := os.MkdirAll(sqlDir, 0o750); err != nil {
		t.Fatalf("failed to create directory %s: %v", sqlDir, err)
	}

	for name, content := range SampleScripts {
		if err := os.WriteFile(filepath.Join(sqlDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	config := "dialect: ansi\nstate_path: .leaplineage/state.db\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "leaplineage.yaml"), []byte(config), 0o600); err != nil {
		t.Fatalf("failed to create leaplineage.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

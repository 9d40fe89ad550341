// Package main provides tests for the leaplineage CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaplineage/internal/cli"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
)

// runCLI executes the root command with args in dir and returns stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, dir, name, sql string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sql), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	output, err := runCLI(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(output, "leaplineage") {
		t.Errorf("version output should contain 'leaplineage', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := runCLI(t, t.TempDir(), "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}

	expectedCommands := []string{"extract", "dialects", "history", "show", "repl", "watch"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestExtractCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "etl.sql", `
CREATE TABLE Orders_Clean AS SELECT id, amount FROM raw.orders;
INSERT INTO totals (total) SELECT SUM(amount) FROM orders_clean;`)

	output, err := runCLI(t, dir,
		"extract", "etl.sql",
		"--dialect", "snowflake",
		"--output", "json",
		"--state", filepath.Join(dir, "state.db"),
	)
	if err != nil {
		t.Fatalf("extract command error = %v", err)
	}

	var got struct {
		Statements []struct {
			Inputs  []string `json:"inputs"`
			Outputs []string `json:"outputs"`
		} `json:"statements"`
	}
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, output)
	}
	if len(got.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(got.Statements))
	}

	// snowflake folds unquoted names to upper case
	if got.Statements[0].Outputs[0] != "ORDERS_CLEAN" {
		t.Errorf("outputs = %v, want [ORDERS_CLEAN]", got.Statements[0].Outputs)
	}
	if got.Statements[1].Inputs[0] != "ORDERS_CLEAN" {
		t.Errorf("inputs = %v, want [ORDERS_CLEAN]", got.Statements[1].Inputs)
	}
}

func TestExtractCommandRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown dialect", []string{"extract", "--sql", "SELECT 1", "--dialect", "nope"}},
		{"unknown output", []string{"extract", "--sql", "SELECT 1", "--output", "xml"}},
		{"bad storage prefix", []string{"extract", "--sql", "SELECT 1", "--storage-prefixes", "s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, t.TempDir(), tt.args...); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestSaveAndHistory(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.sql", "INSERT INTO b SELECT * FROM a;")
	state := filepath.Join(dir, "state.db")

	if _, err := runCLI(t, dir, "extract", "a.sql", "--save", "--state", state, "-o", "json"); err != nil {
		t.Fatalf("extract --save error = %v", err)
	}

	output, err := runCLI(t, dir, "history", "--state", state, "-o", "markdown")
	if err != nil {
		t.Fatalf("history command error = %v", err)
	}
	if !strings.Contains(output, "a.sql") {
		t.Errorf("history output should list a.sql, got: %s", output)
	}
}

func TestCompletionCommand(t *testing.T) {
	output, err := runCLI(t, t.TempDir(), "completion", "bash")
	if err != nil {
		t.Fatalf("completion command error = %v", err)
	}
	if !strings.Contains(output, "leaplineage") {
		t.Errorf("completion script should mention leaplineage, got: %s", output[:min(len(output), 200)])
	}
}

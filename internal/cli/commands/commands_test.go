package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/cli/testutil"
	"github.com/leapstack-labs/leaplineage/internal/store"
	logtest "github.com/leapstack-labs/leaplineage/internal/testutil"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

// setupProject creates a sample project, makes it the working directory
// and loads its configuration with the given output mode.
func setupProject(t *testing.T, mode output.Mode) string {
	t.Helper()

	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.OutputFormat = string(mode)
	return dir
}

// execute runs cmd with args and stdin, returning stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func decodeLineage(t *testing.T, s string) lineageOutput {
	t.Helper()
	var got lineageOutput
	require.NoError(t, json.Unmarshal([]byte(s), &got), s)
	return got
}

// =============================================================================
// Command metadata
// =============================================================================

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewExtractCommand(), "extract [file|dir|-]...", []string{"sql", "save", "strict"}},
		{NewDialectsCommand(), "dialects", nil},
		{NewHistoryCommand(), "history", []string{"limit", "table"}},
		{NewShowCommand(), "show <run>", nil},
		{NewREPLCommand(), "repl", nil},
		{NewWatchCommand(), "watch [dir]", []string{"save"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

// =============================================================================
// extract
// =============================================================================

func TestExtractInlineSQL(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewExtractCommand(), "", "--sql", "INSERT INTO out (k) SELECT s.id FROM src s")
	require.NoError(t, err)

	got := decodeLineage(t, out)
	assert.Empty(t, got.RunID)
	assert.Equal(t, summaryOutput{Statements: 1}, got.Summary)
	require.Len(t, got.Statements, 1)

	rec := got.Statements[0]
	assert.Equal(t, []string{"src"}, rec.Inputs)
	assert.Equal(t, []string{"out"}, rec.Outputs)
	assert.Equal(t, []analyzer.ColumnEdge{{Column: "out.k", Sources: []string{"src.id"}}}, rec.Columns)
}

func TestExtractStdin(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewExtractCommand(), "COPY INTO t FROM @stage; SELECT (")
	require.NoError(t, err)

	got := decodeLineage(t, out)
	assert.Equal(t, summaryOutput{Statements: 2, Failed: 1}, got.Summary)
	require.Len(t, got.Statements, 2)
	assert.Equal(t, stdinSource, got.Statements[0].File)
	assert.Equal(t, "@stage", got.Statements[0].ExternalInputs[0].Name)
	assert.True(t, got.Statements[1].Failed())
}

func TestExtractDirectory(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewExtractCommand(), "", "sql")
	require.NoError(t, err)

	got := decodeLineage(t, out)
	require.Len(t, got.Statements, 3)

	// files are analyzed in sorted order
	assert.Equal(t, filepath.Join("sql", "marts.sql"), got.Statements[0].File)
	assert.Equal(t, []string{"customer_totals"}, got.Statements[0].Outputs)
	assert.Equal(t, []string{"stg_customers"}, got.Statements[1].Outputs)
	assert.Equal(t, []string{"stg_orders"}, got.Statements[2].Outputs)
	assert.Equal(t, []string{"raw_orders"}, got.Statements[2].Inputs)
}

func TestExtractOutputModes(t *testing.T) {
	const sql = "INSERT INTO out (k) SELECT s.id FROM src s"

	t.Run("markdown", func(t *testing.T) {
		setupProject(t, output.ModeMarkdown)
		out, _, err := execute(t, NewExtractCommand(), "", "-e", sql)
		require.NoError(t, err)

		testutil.AssertNoANSI(t, out)
		testutil.AssertValidMarkdown(t, out)
		assert.Contains(t, out, "# Lineage")
		assert.Contains(t, out, "## Statement 1")
		assert.Contains(t, out, "- **Inputs:** src")
		assert.Contains(t, out, "| out.k")
		assert.Contains(t, out, "## Summary")
	})

	t.Run("text", func(t *testing.T) {
		setupProject(t, output.ModeText)
		out, _, err := execute(t, NewExtractCommand(), "", "-e", sql)
		require.NoError(t, err)

		assert.Contains(t, out, "Statement 1")
		assert.Contains(t, out, "out.k")
		assert.Contains(t, out, "Total: 1 statements, 0 failed")
	})

	t.Run("yaml", func(t *testing.T) {
		setupProject(t, output.ModeYAML)
		out, _, err := execute(t, NewExtractCommand(), "", "-e", sql)
		require.NoError(t, err)

		var got lineageOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		require.Len(t, got.Statements, 1)
		assert.Equal(t, []string{"out"}, got.Statements[0].Outputs)
	})
}

func TestExtractStrict(t *testing.T) {
	setupProject(t, output.ModeJSON)

	_, _, err := execute(t, NewExtractCommand(), "", "--strict", "-e", "SELECT 1; SELECT (")
	require.ErrorIs(t, err, ErrStatementsFailed)
	assert.Contains(t, err.Error(), "1 of 2")

	_, _, err = execute(t, NewExtractCommand(), "", "--strict", "-e", "SELECT 1")
	assert.NoError(t, err)
}

func TestExtractMissingFile(t *testing.T) {
	setupProject(t, output.ModeJSON)

	_, _, err := execute(t, NewExtractCommand(), "", "nope.sql")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b.sql", "a.SQL", "notes.txt", "nested/c.sql", ".hidden/d.sql"} {
		path := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o600))
	}

	paths, err := collectSQLFiles([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.SQL"),
		filepath.Join(dir, "b.sql"),
		filepath.Join(dir, "nested", "c.sql"),
	}, paths)

	// explicit files are kept whatever their extension
	paths, err = collectSQLFiles([]string{filepath.Join(dir, "notes.txt")})
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	paths, err = collectSQLFiles([]string{filepath.Join(dir, ".hidden")})
	require.NoError(t, err, "a hidden directory named explicitly is walked")
	assert.Equal(t, []string{filepath.Join(dir, ".hidden", "d.sql")}, paths)

	empty := t.TempDir()
	_, err = collectSQLFiles([]string{empty})
	assert.EqualError(t, err, "no .sql files found")
}

// =============================================================================
// history / show
// =============================================================================

func TestSaveHistoryShowRemove(t *testing.T) {
	dir := setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewExtractCommand(), "", "--save", "sql")
	require.NoError(t, err)
	saved := decodeLineage(t, out)
	require.NotEmpty(t, saved.RunID)
	assert.FileExists(t, filepath.Join(dir, ".leaplineage", "state.db"))

	out, _, err = execute(t, NewHistoryCommand(), "")
	require.NoError(t, err)
	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, saved.RunID, runs[0].ID)
	assert.Equal(t, 3, runs[0].Statements)
	assert.Equal(t, "ansi", runs[0].Dialect)

	out, _, err = execute(t, NewShowCommand(), "", saved.RunID[:8])
	require.NoError(t, err)
	shown := decodeLineage(t, out)
	assert.Equal(t, saved.RunID, shown.RunID)
	assert.Equal(t, saved.Statements, shown.Statements)

	out, _, err = execute(t, NewHistoryCommand(), "", "--table", "stg_orders")
	require.NoError(t, err)
	var uses []store.TableUse
	require.NoError(t, json.Unmarshal([]byte(out), &uses))
	require.Len(t, uses, 2)
	directions := []string{uses[0].Direction, uses[1].Direction}
	assert.ElementsMatch(t, []string{"input", "output"}, directions)

	_, errOut, err := execute(t, NewHistoryCommand(), "", "rm", saved.RunID[:8])
	require.NoError(t, err)
	assert.Empty(t, errOut)

	out, _, err = execute(t, NewHistoryCommand(), "")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, _, err = execute(t, NewShowCommand(), "", saved.RunID)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestHistoryEmptyText(t *testing.T) {
	setupProject(t, output.ModeText)

	out, errOut, err := execute(t, NewHistoryCommand(), "")
	require.NoError(t, err)
	assert.Empty(t, errOut)
	assert.Contains(t, out, "No saved runs")
}

func TestRenderRunsTable(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)
	err := renderRuns(tr.Renderer, []store.RunSummary{{
		ID:         "3f2a9c1b-0000-0000-0000-000000000000",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Dialect:    "duckdb",
		Sources:    []string{"a.sql", "b.sql"},
		Statements: 4,
		Failed:     1,
	}})
	require.NoError(t, err)

	out := tr.Output()
	assert.Contains(t, out, "| Run")
	assert.Contains(t, out, "3f2a9c1b")
	assert.NotContains(t, out, "3f2a9c1b-0000")
	assert.Contains(t, out, "a.sql, b.sql")
}

// =============================================================================
// dialects
// =============================================================================

func TestDialectsCommand(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewDialectsCommand(), "")
	require.NoError(t, err)

	var infos []dialectInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, len(dialect.List()))

	defaults := 0
	for _, d := range infos {
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Normalization)
		if d.Default {
			defaults++
			assert.Equal(t, dialect.Default(), d.Name)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestDialectsCommandTable(t *testing.T) {
	setupProject(t, output.ModeMarkdown)

	out, _, err := execute(t, NewDialectsCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Identifier folding")
	assert.Contains(t, out, "(default)")
}

// =============================================================================
// repl
// =============================================================================

func newTestSession(t *testing.T) (*replSession, *testutil.TestRenderer) {
	t.Helper()
	tr := testutil.NewTestRenderer(output.ModeJSON, false)
	d, err := dialect.Lookup("ansi")
	require.NoError(t, err)
	opts := analyzer.Options{Concurrency: 1}
	opts.Lineage.Dialect = d
	return newREPLSession(opts, nil, tr.Renderer), tr
}

func TestREPLMultiLineStatement(t *testing.T) {
	s, tr := newTestSession(t)
	ctx := context.Background()

	assert.Equal(t, replPrompt, s.prompt())
	assert.False(t, s.handleLine(ctx, "INSERT INTO out"))
	assert.Equal(t, replContinuationPrompt, s.prompt())
	assert.Empty(t, tr.Output())

	assert.False(t, s.handleLine(ctx, "SELECT id FROM src;"))
	assert.Equal(t, replPrompt, s.prompt())

	got := decodeLineage(t, tr.Output())
	require.Len(t, got.Statements, 1)
	assert.Equal(t, []string{"src"}, got.Statements[0].Inputs)
	assert.Equal(t, []string{"out"}, got.Statements[0].Outputs)
}

func TestREPLInterrupt(t *testing.T) {
	s, tr := newTestSession(t)

	s.handleLine(context.Background(), "SELECT")
	s.interrupt()
	assert.Equal(t, replPrompt, s.prompt())
	assert.Empty(t, tr.Output())
}

func TestREPLDotCommands(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		quit    bool
		wantOut string
		wantErr string
	}{
		{name: "quit", line: ".quit", quit: true},
		{name: "exit", line: ".EXIT", quit: true},
		{name: "help", line: ".help", wantOut: ".dialect [name]"},
		{name: "show dialect", line: ".dialect", wantOut: "dialect: ansi"},
		{name: "switch dialect", line: ".dialect snowflake", wantOut: "dialect: snowflake"},
		{name: "unknown dialect", line: ".dialect nope", wantErr: "nope"},
		{name: "show schema", line: ".schema", wantOut: "default schema: (none)"},
		{name: "set schema", line: ".schema public", wantOut: "default schema: public"},
		{name: "clear schema", line: ".schema -", wantOut: "default schema: (none)"},
		{name: "unknown", line: ".tables", wantErr: "Unknown command: .tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestSession(t)
			assert.Equal(t, tt.quit, s.handleLine(context.Background(), tt.line))
			if tt.wantOut != "" {
				assert.Contains(t, tr.Output(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.wantErr)
			}
		})
	}
}

func TestREPLDialectSwitchAffectsAnalysis(t *testing.T) {
	s, tr := newTestSession(t)
	ctx := context.Background()

	s.handleLine(ctx, ".dialect snowflake")
	s.handleLine(ctx, ".schema public")
	tr.Reset()

	s.handleLine(ctx, "INSERT INTO out SELECT id FROM src;")
	got := decodeLineage(t, tr.Output())
	require.Len(t, got.Statements, 1)
	assert.Equal(t, []string{"PUBLIC.SRC"}, got.Statements[0].Inputs)
}

// =============================================================================
// watch
// =============================================================================

func TestIsSQLChange(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "a.sql", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "a.SQL", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "a.sql", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "a.sql", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, isSQLChange(tt.event))
		})
	}
}

func TestWatchSQL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o750))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() { _ = watcher.Close() }()
	require.NoError(t, watchDir(watcher, dir))
	assert.Equal(t, []string{dir}, watcher.WatchList(), "hidden directories are skipped")

	logger, logs := logtest.NewRecordingLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan []string, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchSQL(ctx, watcher, 20*time.Millisecond, logger, func(paths []string) {
			changes <- paths
		})
	}()

	path := filepath.Join(dir, "model.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	select {
	case paths := <-changes:
		assert.Equal(t, []string{path}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.Contains(t, logs.Messages(), "change detected")
}

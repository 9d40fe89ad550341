package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/internal/store"
)

// stdinSource names standard input among the analyzed sources.
const stdinSource = "-"

// ErrStatementsFailed is returned by extract --strict when any statement
// could not be analyzed.
var ErrStatementsFailed = errors.New("statements failed")

// ExtractOptions holds options for the extract command.
type ExtractOptions struct {
	SQL    string
	Save   bool
	Strict bool
}

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	opts := &ExtractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [file|dir|-]...",
		Short: "Extract lineage from SQL",
		Long: `Extract table and column lineage from SQL scripts.

Each argument is a SQL file or a directory searched recursively for *.sql
files. Use "-" or pipe a script to read standard input. Every statement is
analyzed on its own, so a statement that fails to parse does not hide the
lineage of the others.`,
		Example: `  # Extract lineage from a file
  leaplineage extract etl.sql

  # Analyze every script under a directory with the Snowflake dialect
  leaplineage extract sql/ --dialect snowflake

  # Inline SQL, saved to the run history
  leaplineage extract --sql "INSERT INTO out SELECT id FROM src" --save

  # Pipe a script and emit JSON
  cat etl.sql | leaplineage extract -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SQL, "sql", "e", "", "SQL text to analyze")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Save the run to the state database")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail when any statement cannot be analyzed")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string, opts *ExtractOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	an, err := cmdCtx.Analyzer()
	if err != nil {
		return err
	}

	var (
		records []analyzer.Record
		sources []string
	)

	switch {
	case opts.SQL != "":
		records = analyzer.Records(an.AnalyzeScript(ctx, "", opts.SQL))
		sources = []string{stdinSource}

	case len(args) == 0 || (len(args) == 1 && args[0] == stdinSource):
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
			return errors.New("no SQL given: pass files, --sql, or pipe a script")
		}
		content, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		records = analyzer.Records(an.AnalyzeScript(ctx, stdinSource, string(content)))
		sources = []string{stdinSource}

	default:
		paths, err := collectSQLFiles(args)
		if err != nil {
			return err
		}
		files, err := an.AnalyzeFiles(ctx, paths)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.Err != nil {
				return f.Err
			}
			records = append(records, analyzer.Records(f.Results)...)
		}
		sources = paths
	}

	var runID string
	if opts.Save {
		if runID, err = saveRun(ctx, cmdCtx, sources, records); err != nil {
			return err
		}
	}

	if err := renderRecords(cmdCtx.Renderer, "Lineage", runID, records); err != nil {
		return err
	}

	if s := summarize(records); opts.Strict && s.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrStatementsFailed, s.Failed, s.Statements)
	}
	return nil
}

func saveRun(ctx context.Context, cmdCtx *CommandContext, sources []string, records []analyzer.Record) (string, error) {
	st, err := cmdCtx.OpenStore()
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()

	run := store.NewRun(cmdCtx.Cfg.Dialect, cmdCtx.Cfg.DefaultSchema, sources, records)
	if err := st.SaveRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

// collectSQLFiles expands directories into the *.sql files below them,
// skipping hidden directories. Files named explicitly are kept as given.
func collectSQLFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".sql") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}

	if len(paths) == 0 {
		return nil, errors.New("no .sql files found")
	}
	return paths, nil
}

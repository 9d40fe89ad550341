// Package analyzer runs lineage extraction over SQL scripts and files.
//
// A script is split into statements with parser.ParseEach; each statement
// is analyzed with its own lineage context, so one bad statement never
// hides the lineage of the others.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaplineage/pkg/lineage"
	"github.com/leapstack-labs/leaplineage/pkg/parser"
)

// Options configures an Analyzer.
type Options struct {
	Lineage lineage.Options
	// Concurrency bounds the number of files analyzed at once.
	// Zero or less means GOMAXPROCS.
	Concurrency int
}

// Analyzer extracts lineage from SQL text.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// Result is the outcome of analyzing one statement.
type Result struct {
	// Index is the statement's position within its file, starting at 0.
	Index   int
	File    string
	SQL     string
	Lineage *lineage.Lineage
	Err     error
}

// FileResult groups the statement results of one file.
type FileResult struct {
	Path    string
	Results []Result
	// Err is set when the file could not be read.
	Err error
}

// New creates an Analyzer. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Options returns the analyzer's configuration.
func (a *Analyzer) Options() Options { return a.opts }

// AnalyzeScript analyzes every statement of a ;-separated script. Parse
// and lineage errors are reported per statement.
func (a *Analyzer) AnalyzeScript(ctx context.Context, file, sql string) []Result {
	parsed := parser.ParseEach(sql, a.opts.Lineage.Dialect)
	results := make([]Result, 0, len(parsed))

	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Index: p.Index, File: file, SQL: p.Text, Err: err})
			continue
		}

		r := Result{Index: p.Index, File: file, SQL: p.Text, Err: p.Err}
		if r.Err == nil {
			r.Lineage, r.Err = lineage.Extract(p.Stmt, a.opts.Lineage)
		}
		if r.Err != nil {
			a.logger.Debug("statement failed", "file", file, "index", p.Index, "error", r.Err)
		}
		results = append(results, r)
	}

	a.logger.Debug("script analyzed", "file", file, "statements", len(results))
	return results
}

// AnalyzeFile reads and analyzes one SQL file.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) ([]Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return a.AnalyzeScript(ctx, path, string(data)), nil
}

// AnalyzeFiles analyzes files concurrently. The returned slice is in the
// order of paths. Unreadable files are reported in FileResult.Err; the
// returned error is only set when ctx is cancelled.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	out := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := a.AnalyzeFile(gctx, path)
			if err != nil {
				a.logger.Warn("skipping file", "path", path, "error", err)
			}
			out[i] = FileResult{Path: path, Results: results, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to analyze files: %w", err)
	}

	a.logger.Info("analysis complete", "files", len(paths))
	return out, nil
}

// Flatten concatenates the statement results of every file.
func Flatten(files []FileResult) []Result {
	var all []Result
	for _, f := range files {
		all = append(all, f.Results...)
	}
	return all
}

// Summary counts statements and failures in a set of results.
type Summary struct {
	Statements int
	Failed     int
	Inputs     int
	Outputs    int
}

// Summarize computes a Summary. Tables are counted once per name.
func Summarize(results []Result) Summary {
	var s Summary
	inputs := map[string]bool{}
	outputs := map[string]bool{}
	for _, r := range results {
		s.Statements++
		if r.Err != nil {
			s.Failed++
			continue
		}
		for _, t := range r.Lineage.Inputs {
			inputs[t.Key()] = true
		}
		for _, t := range r.Lineage.Outputs {
			outputs[t.Key()] = true
		}
	}
	s.Inputs = len(inputs)
	s.Outputs = len(outputs)
	return s
}

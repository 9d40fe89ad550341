package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
)

// watchDebounce is how long a burst of file events is collected before
// the changed files are analyzed.
const watchDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-extract lineage whenever SQL files change",
		Long: `Analyze every *.sql file under a directory, then watch it and analyze
each file again as soon as it is written. Press Ctrl+C to stop.`,
		Example: `  leaplineage watch sql/
  leaplineage watch sql/ --dialect duckdb --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runWatch(cmd, dir, save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save each analysis to the state database")
	return cmd
}

func runWatch(cmd *cobra.Command, dir string, save bool) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	an, err := cmdCtx.Analyzer()
	if err != nil {
		return err
	}

	analyze := func(title string, paths []string) {
		files, err := an.AnalyzeFiles(ctx, paths)
		if err != nil {
			r.Error(err.Error())
			return
		}
		var records []analyzer.Record
		for _, f := range files {
			if f.Err != nil {
				r.Warning(f.Err.Error())
				continue
			}
			records = append(records, analyzer.Records(f.Results)...)
		}

		var runID string
		if save && len(records) > 0 {
			if runID, err = saveRun(ctx, cmdCtx, paths, records); err != nil {
				r.Error(err.Error())
			}
		}
		if err := renderRecords(r, title, runID, records); err != nil {
			r.Error(err.Error())
		}
	}

	if paths, err := collectSQLFiles([]string{dir}); err == nil {
		analyze("Lineage", paths)
	} else {
		r.Muted(err.Error())
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	r.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", dir))
	watchSQL(ctx, watcher, watchDebounce, cmdCtx.Logger, func(paths []string) {
		analyze("Changed: "+strings.Join(paths, ", "), paths)
	})
	return nil
}

// watchDir recursively adds a directory to the watcher, skipping hidden
// directories.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isSQLChange reports whether the event wrote or created a SQL file.
func isSQLChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".sql")
}

// watchSQL calls onChange with the SQL files changed during each burst of
// events until ctx is done. New directories are watched as they appear.
func watchSQL(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, logger *slog.Logger, onChange func([]string)) {
	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDir(watcher, event.Name); err != nil {
						logger.Warn("failed to watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !isSQLChange(event) {
				continue
			}

			pending[event.Name] = true
			timer.Reset(debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			logger.Debug("change detected", "files", len(paths))
			onChange(paths)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

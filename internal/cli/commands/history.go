package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/store"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Table string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved lineage runs",
		Long: `List the runs saved with "extract --save", most recent first.

With --table, list every saved statement that read or wrote the table.`,
		Example: `  # Recent runs
  leaplineage history

  # Which saved statements touch analytics.orders?
  leaplineage history --table analytics.orders

  # Remove a run
  leaplineage history rm 3f2a9c1b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum number of runs (default from history_limit)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Show statements touching this table")

	cmd.AddCommand(newHistoryRemoveCommand())
	return cmd
}

func newHistoryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <run>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			st, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			id, err := st.DeleteRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Deleted run " + id)
			return nil
		},
	}
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	st, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if opts.Table != "" {
		uses, err := st.TableUses(cmd.Context(), opts.Table)
		if err != nil {
			return err
		}
		return renderTableUses(r, opts.Table, uses)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = cmdCtx.Cfg.HistoryLimit
	}
	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return renderRuns(r, runs)
}

func renderRuns(r *output.Renderer, runs []store.RunSummary) error {
	if runs == nil {
		runs = []store.RunSummary{}
	}
	if handled, err := r.Data(runs); handled {
		return err
	}
	if len(runs) == 0 {
		r.Muted("No saved runs. Use extract --save to record one.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			output.ShortID(run.ID),
			run.CreatedAt.Local().Format(time.DateTime),
			run.Dialect,
			fmt.Sprintf("%d", run.Statements),
			fmt.Sprintf("%d", run.Failed),
			strings.Join(run.Sources, ", "),
		}
	}
	r.Table([]string{"Run", "Created", "Dialect", "Statements", "Failed", "Sources"}, rows)
	return nil
}

func renderTableUses(r *output.Renderer, table string, uses []store.TableUse) error {
	if uses == nil {
		uses = []store.TableUse{}
	}
	if handled, err := r.Data(uses); handled {
		return err
	}
	if len(uses) == 0 {
		r.Muted(fmt.Sprintf("No saved statement reads or writes %s.", table))
		return nil
	}

	rows := make([][]string, len(uses))
	for i, u := range uses {
		rows[i] = []string{output.ShortID(u.RunID), u.File, fmt.Sprintf("%d", u.Index+1), u.Direction}
	}
	r.Table([]string{"Run", "File", "Statement", "Role"}, rows)
	return nil
}

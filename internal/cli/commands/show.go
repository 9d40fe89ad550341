package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run>",
		Short: "Show the lineage of a saved run",
		Long: `Show every statement of a saved run with its lineage. The run may be
named by any unique prefix of its ID.`,
		Example: `  leaplineage show 3f2a9c1b
  leaplineage show 3f2a9c1b -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			st, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderRecords(cmdCtx.Renderer, "Run "+output.ShortID(run.ID), run.ID, run.Records)
		},
	}
}

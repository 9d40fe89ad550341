package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

// dialectInfo describes a registered dialect.
type dialectInfo struct {
	Name          string `json:"name" yaml:"name"`
	Normalization string `json:"normalization" yaml:"normalization"`
	Quote         string `json:"quote" yaml:"quote"`
	DefaultSchema string `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
	Default       bool   `json:"default" yaml:"default"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Long: `List the SQL dialects lineage can be extracted with, and how each one
folds unquoted identifiers. The dialect decides whether "Orders" and
"orders" name the same table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDialects(cmd)
		},
	}
}

func listDialects() []dialectInfo {
	var infos []dialectInfo
	for _, name := range dialect.List() {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, dialectInfo{
			Name:          d.Name,
			Normalization: d.Identifiers.Normalization.String(),
			Quote:         d.Identifiers.Quote + d.Identifiers.QuoteEnd,
			DefaultSchema: d.DefaultSchema,
			Default:       name == dialect.Default(),
		})
	}
	return infos
}

func runDialects(cmd *cobra.Command) error {
	r := NewCommandContext(cmd).Renderer
	infos := listDialects()

	if handled, err := r.Data(infos); handled {
		return err
	}

	rows := make([][]string, len(infos))
	for i, d := range infos {
		name := d.Name
		if d.Default {
			name += " (default)"
		}
		rows[i] = []string{name, d.Normalization, d.Quote, d.DefaultSchema}
	}
	r.Table([]string{"Dialect", "Identifier folding", "Quotes", "Default schema"}, rows)
	return nil
}

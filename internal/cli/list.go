package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"modelyaml/pkg/types"
)

func newListCmd(s *settings) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list [prefix]",
		Aliases: []string{"ls"},
		Short:   "List model definitions",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, "table", "json", "yaml"); err != nil {
				return err
			}
			m, err := s.loadManager()
			if err != nil {
				return err
			}
			var models []types.ModelSummary
			for _, sum := range m.ListModels() {
				if len(args) == 0 || strings.HasPrefix(strings.ToLower(sum.ID), strings.ToLower(args[0])) {
					models = append(models, sum)
				}
			}
			switch output {
			case "json":
				return writeJSON(s.out, types.ModelsResponse{Models: models})
			case "yaml":
				return writeYAML(s.out, types.ModelsResponse{Models: models})
			}
			var data [][]string
			for _, sum := range models {
				base := sum.Base
				if base == "" {
					base = "-"
				}
				variants := strings.Join(sum.Concrete, ", ")
				if variants == "" {
					variants = "-"
				}
				data = append(data, []string{sum.ID, base, variants})
			}
			table := newTable(s.out, []string{"NAME", "BASE", "VARIANTS"})
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json|yaml")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ainsight/internal/ai"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show known models with context size and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := ""
		if c, err := currentConfig(); err == nil {
			current = c.Model
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"", "model", "context", "input $/1K", "output $/1K"})
		for _, name := range ai.ModelNames() {
			mi, _ := ai.LookupModel(name)
			mark := ""
			if name == current {
				mark = "*"
			}
			tw.AppendRow(table.Row{mark, mi.Name, mi.ContextTokens,
				fmt.Sprintf("%.5f", mi.InputPerK), fmt.Sprintf("%.5f", mi.OutputPerK)})
		}
		tw.Render()
		if current != "" {
			if _, ok := ai.LookupModel(current); !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: configured model %q has no pricing; cost is not logged\n", current)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

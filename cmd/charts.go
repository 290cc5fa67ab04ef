package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ainsight/internal/chart"
	"github.com/spf13/cobra"
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List the chart types and when to use them",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderTerminalMarkdown(chart.Suggestions()))
		fmt.Fprintln(out, "Chart ids for --chart:")
		for _, k := range chart.Kinds() {
			y := ""
			if k.NeedsY() {
				y = " (needs --y)"
			}
			fmt.Fprintf(out, "  %-10s %s%s\n", string(k), k.Label(), y)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}

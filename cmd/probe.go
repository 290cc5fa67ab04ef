package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/spf13/cobra"
)

var probeAPIKey string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check an OpenAI API key with one minimal chat call",
	Example: `  ainsight probe
  ainsight probe --api-key sk-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		key := c.APIKey
		if probeAPIKey != "" {
			key = probeAPIKey
		}
		if key == "" {
			return errors.New("no API key: set api_key, AINSIGHT_API_KEY or --api-key")
		}
		o := insight.New(insightConfig(c), newRuntimeFactory(c), newLogger(c), nil)
		res := o.CheckKey(commandContext(cmd), key)
		if res.Outcome != insight.ProbeValid {
			if debug && res.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", res.Err)
			}
			return errors.New(res.Notice.Text)
		}
		fmt.Fprintln(cmd.OutOrStdout(), noticeLine(res.Notice))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVar(&probeAPIKey, "api-key", "", "API key to check (overrides api_key)")
}

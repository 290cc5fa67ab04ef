package cmd

import (
	"fmt"
	"io"

	cfgpkg "github.com/KaramelBytes/ainsight/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set AInsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		showConfig(cmd.OutOrStdout(), c)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func showConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
	fmt.Fprintf(w, "model: %s\n", c.Model)
	fmt.Fprintf(w, "base_url: %s\n", c.BaseURL)
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
	fmt.Fprintf(w, "max_rows_for_analysis: %d\n", c.MaxRowsForAnalysis)
	fmt.Fprintf(w, "sample_seed: %d\n", c.SampleSeed)
	fmt.Fprintf(w, "data_temperature: %.3f\n", c.DataTemperature)
	fmt.Fprintf(w, "preview_rows: %d\n", c.PreviewRows)
	fmt.Fprintf(w, "delimiter: %q\n", c.Delimiter)
	fmt.Fprintf(w, "decimal_separator: %q\n", c.DecimalSeparator)
	if c.ThousandsSeparator != "" {
		fmt.Fprintf(w, "thousands_separator: %q\n", c.ThousandsSeparator)
	}
	fmt.Fprintf(w, "listen_addr: %s\n", c.ListenAddr)
	fmt.Fprintf(w, "session_secret: %s\n", mask(c.SessionSecret))
	fmt.Fprintf(w, "session_max_age_sec: %d\n", c.SessionMaxAgeSec)
	fmt.Fprintf(w, "session_idle_minutes: %d\n", c.SessionIdleMinutes)
	fmt.Fprintf(w, "session_secure_cookie: %t\n", c.SessionSecureCookie)
	fmt.Fprintf(w, "max_upload_mb: %d\n", c.MaxUploadMB)
	fmt.Fprintf(w, "log_format: %s\n", c.LogFormat)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

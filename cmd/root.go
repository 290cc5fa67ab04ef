package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/KaramelBytes/ainsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/ainsight/internal/config"
	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "ainsight",
	Short: "AInsight: upload a CSV, get statistics, AI insights and charts",
	Long: `AInsight serves a small web app that summarises an uploaded CSV, asks an
OpenAI chat model for insights and draws interactive charts. The same pipeline
runs headless through the analyze command.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ainsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts per chat call on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	// .env is optional; values there become AINSIGHT_* env overrides.
	_ = godotenv.Load()

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults via currentConfig.
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if debug {
		// Visit only walks flags set in this invocation.
		f.Visit(func(fl *pflag.Flag) {
			fmt.Fprintf(os.Stderr, "debug: --%s=%s\n", fl.Name, fl.Value.String())
		})
	}
}

// currentConfig returns the loaded config, or the defaults when loading failed.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Defaults()
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func newLogger(c *cfgpkg.Global) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if c != nil && c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newRuntimeFactory builds chat runtimes with the configured HTTP and retry
// settings. The key varies per web session, so it is bound late.
func newRuntimeFactory(c *cfgpkg.Global) insight.RuntimeFactory {
	base := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		BaseURL:     c.BaseURL,
	}
	return func(apiKey string) ai.Runtime {
		rc := base
		rc.APIKey = apiKey
		rt, ok := ai.GetRuntime(ai.ProviderOpenAI, rc)
		if !ok {
			return ai.RuntimeFunc(func(ctx context.Context, _ ai.GenerateRequest) (*ai.GenerateResponse, error) {
				return nil, fmt.Errorf("runtime %q is not registered", ai.ProviderOpenAI)
			})
		}
		return rt
	}
}

func insightConfig(c *cfgpkg.Global) insight.Config {
	return insight.Config{
		Model:           c.Model,
		MaxRows:         c.MaxRowsForAnalysis,
		Seed:            c.SampleSeed,
		DataTemperature: c.DataTemperature,
		PreviewRows:     c.PreviewRows,
		Parse:           c.ParseOptions(),
	}
}

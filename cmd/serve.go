package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/KaramelBytes/ainsight/internal/metrics"
	"github.com/KaramelBytes/ainsight/internal/web"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Example: `  ainsight serve
  ainsight serve --addr 127.0.0.1:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		logger := newLogger(c)
		m := metrics.New()
		o := insight.New(insightConfig(c), newRuntimeFactory(c), logger, m)
		srv := web.NewServer(web.Config{
			Addr:          addr,
			Orchestrator:  o,
			SessionSecret: c.SessionSecret,
			SessionMaxAge: time.Duration(c.SessionMaxAgeSec) * time.Second,
			SessionIdle:   time.Duration(c.SessionIdleMinutes) * time.Minute,
			SecureCookie:  c.SessionSecureCookie,
			MaxUploadMB:   c.MaxUploadMB,
			Logger:        logger,
			Metrics:       m,
		})

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("web server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}

// commandContext tolerates commands run without ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

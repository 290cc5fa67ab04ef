// Package web serves the interactive analysis UI.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/KaramelBytes/ainsight/internal/metrics"
	"github.com/KaramelBytes/ainsight/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"
)

// Server is the web UI server.
type Server struct {
	addr         string
	orchestrator *insight.Orchestrator
	sessions     *session.Store
	cookieStore  *sessions.CookieStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	maxUpload    int64
}

// Config holds configuration for the web server.
type Config struct {
	Addr          string
	Orchestrator  *insight.Orchestrator
	SessionSecret string
	// SessionMaxAge is the cookie lifetime; SessionIdle drops server-side
	// state after inactivity.
	SessionMaxAge time.Duration
	SessionIdle   time.Duration
	// SecureCookie marks the session cookie Secure; enable it only behind TLS.
	SecureCookie bool
	MaxUploadMB  int
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// NewServer creates a new web server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		logger.Debug("session_secret not set, cookies will not survive a restart")
	}
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	sessionStore := sessions.NewCookieStore([]byte(secret))
	sessionStore.MaxAge(int(maxAge.Seconds()))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	// NewCookieStore defaults to Secure, which plain-HTTP clients drop.
	sessionStore.Options.Secure = cfg.SecureCookie

	maxUpload := int64(cfg.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 200 << 20
	}

	return &Server{
		addr:         cfg.Addr,
		orchestrator: cfg.Orchestrator,
		sessions:     session.New(cfg.SessionIdle, nil),
		cookieStore:  sessionStore,
		logger:       logger,
		metrics:      cfg.Metrics,
		maxUpload:    maxUpload,
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random: %v", err))
	}
	return hex.EncodeToString(b)
}

// Handler builds the router with middleware and all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		s.metrics.Middleware,
	)
	SetupRoutes(r, NewHandlers(s.orchestrator, s.sessions, s.cookieStore, s.logger, s.maxUpload), s.metrics)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting web server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

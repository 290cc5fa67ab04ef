package web

import (
	"net/http"

	"github.com/KaramelBytes/ainsight/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures all routes on router.
func SetupRoutes(router chi.Router, h *Handlers, m *metrics.Metrics) {
	router.Get("/", h.Page)
	router.Post("/credential", h.Credential)
	router.Post("/upload", h.Upload)
	router.Get("/chart", h.Chart)
	router.Post("/session/end", h.EndSession)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", m.Handler())
}

// Package api exposes the admin dashboard over HTTP: dialer control,
// import uploads, KPI counts, maintenance actions, and the results export.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/dialer-admin/internal/store"
)

// Options configures the HTTP server.
type Options struct {
	// AllowedOrigins is passed straight to the CORS middleware. Default "*".
	AllowedOrigins []string
	// ChunkSize for import batch writes. Zero means the importer default.
	ChunkSize int
	// SurveyName injected into every exported row.
	SurveyName string
}

// Server wires the store into HTTP handlers.
type Server struct {
	store store.Store
	opts  Options
}

// NewServer returns a Server backed by st.
func NewServer(st store.Store, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{store: st, opts: opts}
}

// Routes builds the router. The dashboard frontend is a separate app, so
// everything here is JSON (plus the xlsx download).
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute)) // imports of large sheets

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/dialer/start", s.handleDialerStart)
		r.Post("/dialer/stop", s.handleDialerStop)
		r.Put("/dialer/speed", s.handleDialerSpeed)
		r.Put("/dialer/callers", s.handleDialerCallers)

		r.Post("/import/{destination}", s.handleImport)

		r.Post("/leads/reset-failed", s.handleResetFailed)
		r.Delete("/leads", s.handleWipeLeads)

		r.Get("/export.xlsx", s.handleExport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

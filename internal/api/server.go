// Package api exposes the editor over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/config"
	"github.com/sells-group/market-intel/internal/editor"
	"github.com/sells-group/market-intel/internal/geo"
	"github.com/sells-group/market-intel/internal/monitoring"
	"github.com/sells-group/market-intel/internal/resilience"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Editor *editor.Service
	// Store is probed by /health when it can be pinged or carries a breaker.
	Store           any
	Collector       *monitoring.Collector
	Metrics         *monitoring.Metrics
	Gatherer        prometheus.Gatherer
	Interconnectors []geo.Interconnector
	Identity        config.IdentityConfig
	CORSOrigins     []string
}

// Server holds the handlers.
type Server struct {
	deps  Deps
	query *schema.Decoder
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return &Server{deps: deps, query: dec}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(instrument(s.deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", s.identityHeader()},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/tenors", s.handleTenors)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.handleListRecords)
			r.Post("/", s.handleAddRecord)
			r.Route("/{name}", func(r chi.Router) {
				r.Put("/", s.handleEditRecord)
				r.Delete("/", s.handleDeleteRecord)
				r.Post("/comments", s.handleComment)
				r.Get("/history", s.handleRecordHistory)
			})
		})

		r.Get("/history", s.handleAllHistory)
		r.Get("/export", s.handleExport)
		r.Get("/tags/suggest", s.handleSuggestTags)
		r.Get("/map/interconnectors", s.handleInterconnectors)
		r.Get("/map/countries", s.handleMapCountries)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) identityHeader() string {
	if s.deps.Identity.Header != "" {
		return s.deps.Identity.Header
	}
	return "X-Forwarded-User"
}

// actor names the caller from the identity header set by the fronting proxy.
func (s *Server) actor(r *http.Request) string {
	if u := r.Header.Get(s.identityHeader()); u != "" {
		return u
	}
	if s.deps.Identity.DefaultUser != "" {
		return s.deps.Identity.DefaultUser
	}
	return "anonymous"
}

type pinger interface {
	Ping(ctx context.Context) error
}

type breakerReporter interface {
	Breaker() *resilience.Breaker
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, map[string]string{"status": "ok"}

	if p, ok := s.deps.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			zap.L().Warn("api: store ping failed", zap.Error(err))
			status, body["status"], body["store"] = http.StatusServiceUnavailable, "unavailable", err.Error()
		}
	}
	if b, ok := s.deps.Store.(breakerReporter); ok {
		state := b.Breaker().State()
		body["breaker"] = state.String()
		if state == resilience.Open && status == http.StatusOK {
			status, body["status"] = http.StatusServiceUnavailable, "degraded"
		}
	}
	writeJSON(w, status, body)
}

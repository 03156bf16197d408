// Package httpapi serves the process's observability surface:
// Prometheus metrics and a liveness/readiness probe. It is entirely
// separate from the gRPC media-control surface in rpcapi.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse is the body returned from /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime_seconds"`
}

// Server is the chi-routed HTTP handler mounting /metrics and /healthz.
type Server struct {
	router    *chi.Mux
	startedAt time.Time
}

// NewServer builds the HTTP handler, scraping reg for /metrics.
func NewServer(reg *prometheus.Registry) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		startedAt: time.Now(),
	}
	s.routes(reg)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes(reg *prometheus.Registry) {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.handleHealthz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status: "ok",
		Uptime: int64(time.Since(s.startedAt).Seconds()),
	})
}

// Package http serves the normalizer's operational endpoints: liveness,
// pipeline readiness, and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serviceName identifies this service in status payloads.
const serviceName = "climate-data-normalizer"

// readinessTimeout caps how long a readiness probe may block.
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether the normalizer pipeline is ready to
// process datasets. The pipeline implements this once its first batch has
// gone through.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// statusResponse is the JSON body of /healthz and /readyz.
type statusResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// Server exposes the normalizer's health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	ready      ReadinessChecker
	logger     *slog.Logger
}

// NewServer wires /healthz, /readyz, and /metrics onto addr. Readiness is
// delegated to the given checker.
func NewServer(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ready:  ready,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "service", serviceName)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, statusResponse{Service: serviceName, Status: "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		s.logger.Debug("readiness probe failed", "error", err)
		writeStatus(w, http.StatusServiceUnavailable, statusResponse{
			Service: serviceName,
			Status:  "not ready",
			Reason:  err.Error(),
		})
		return
	}
	writeStatus(w, http.StatusOK, statusResponse{Service: serviceName, Status: "ready"})
}

func writeStatus(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // best-effort status response
}

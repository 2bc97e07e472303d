package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/monitor"
	"github.com/knoguchi/qbridge/internal/vectorstore"
)

// HTTPServer exposes the read-only operational surface: health,
// the aggregated monitoring report, and the collection inventory.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger
	store  vectorstore.VectorStore
	mon    *monitor.Monitor
	table  *binding.Table
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port    int
	Logger  *slog.Logger
	Store   vectorstore.VectorStore
	Monitor *monitor.Monitor
	Table   *binding.Table
}

// NewHTTPServer creates the operational HTTP server
func NewHTTPServer(cfg HTTPServerConfig) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	s := &HTTPServer{
		router: router,
		logger: logger,
		store:  cfg.Store,
		mon:    cfg.Monitor,
		table:  cfg.Table,
	}

	router.Get("/healthz", s.handleHealth)
	router.Get("/v1/report", s.handleReport)
	router.Get("/v1/collections", s.handleCollections)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.HealthCheck(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "healthy",
		"qdrant_version": version,
	})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mon.Report(r.Context()))
}

// collectionView pairs a collection's live stats with its binding.
type collectionView struct {
	Stats   vectorstore.CollectionStats `json:"stats"`
	Binding binding.CollectionBinding   `json:"binding"`
	Error   string                      `json:"error,omitempty"`
}

func (s *HTTPServer) handleCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListCollections(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": err.Error(),
			"kind":  errorKind(err),
		})
		return
	}

	views := make([]collectionView, 0, len(names))
	for _, name := range names {
		view := collectionView{Binding: s.table.Resolve(name)}
		stats, err := s.store.Stats(r.Context(), name)
		if err != nil {
			view.Stats = vectorstore.CollectionStats{Name: name}
			view.Error = err.Error()
		} else {
			view.Stats = stats
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": views})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

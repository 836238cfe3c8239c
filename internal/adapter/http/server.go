package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner executes pipeline runs and exposes the last result.
type Runner interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context) (*pipeline.Result, error)
	Last() *pipeline.Result
	MapPath() string
}

// RunHistory lists recorded runs.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
	Ping(ctx context.Context) error
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	history    RunHistory
	logger     *slog.Logger
}

// NewServer creates the HTTP server. history may be nil when run history is disabled.
func NewServer(addr string, runner Runner, history RunHistory, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     withCORS(mux),
			ReadTimeout: 10 * time.Second,
			// A run trains the forest and may wait on the climate provider.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		runner:  runner,
		history: history,
		logger:  logger,
	}

	mux.HandleFunc("GET /predict", s.handlePredict)
	mux.HandleFunc("GET /mapa", s.handleMap)
	mux.HandleFunc("GET /chart.png", s.handleChart)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(readiness{runner: runner, history: history}))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// readiness requires a completed run and, when enabled, a reachable history store.
type readiness struct {
	runner  sharedobs.ReadinessChecker
	history RunHistory
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.runner.CheckReadiness(ctx); err != nil {
		return err
	}
	if r.history != nil {
		if err := r.history.Ping(ctx); err != nil {
			return fmt.Errorf("run history: %w", err)
		}
	}
	return nil
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
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

// withCORS allows any origin to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

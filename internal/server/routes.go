package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nudiguru/nudiguru-api/internal/observe"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Metrics records HTTP request durations. Nil disables recording.
	Metrics *observe.Metrics
	// ExposeMetrics registers GET /metrics for Prometheus scraping.
	ExposeMetrics bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /lessons", h.ListLessons)
	mux.HandleFunc("POST /evaluate", h.Evaluate)
	mux.HandleFunc("GET /tts/generate/{id}", h.GetReferenceAudio)
	mux.HandleFunc("GET /tts/status", h.ReferenceStatus)
	mux.HandleFunc("POST /battle/create", h.CreateRoom)
	mux.HandleFunc("GET /battle/room/{code}", h.GetRoom)
	mux.HandleFunc("GET /battle/room/{code}/ws", h.WatchRoom)
	mux.HandleFunc("POST /battle/score", h.SubmitScore)
	if cfg.ExposeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.Noop()
	}

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
		observe.Middleware(metrics),
	)

	return chain(mux)
}

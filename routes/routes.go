package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/grounded-qa/app"
	"github.com/upb/grounded-qa/handlers"
	appmw "github.com/upb/grounded-qa/middleware"
	"github.com/upb/grounded-qa/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(appmw.RequestContext)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(deps.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	health := handlers.NewHealthHandler(databaseChecker(deps), deps.Vectors, cfg.VectorStore.Collection, deps.Logger)
	chat := handlers.NewChatHandler(deps.Orchestrator, deps.Logger)
	history := handlers.NewHistoryHandler(deps.History, deps.Logger)
	metrics := newMetricsHandler(deps)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	r.Get("/api/health", health.HandleHealth)
	r.Get("/api/ready", health.HandleReadiness)

	// Unversioned chat path kept for existing book frontends
	r.Post("/api/chat", chat.HandleChat)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chat.HandleChat)

		r.Route("/queries", func(r chi.Router) {
			r.Get("/stats", history.HandleStats)
			r.Get("/{id}", history.HandleGetQuery)
		})
		r.Get("/sessions/{session_id}/queries", history.HandleListSession)

		r.Get("/metrics", metrics.HandleMetrics)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	return r
}

// databaseChecker avoids handing a typed nil to the health handler
func databaseChecker(deps *app.Dependencies) handlers.DatabaseChecker {
	if deps.DB == nil {
		return nil
	}
	return deps.DB
}

func newMetricsHandler(deps *app.Dependencies) *handlers.MetricsHandler {
	var cache handlers.CacheStatsSource
	if deps.EmbeddingCache != nil {
		cache = deps.EmbeddingCache
	}
	var recorder handlers.RecorderStatsSource
	if deps.AsyncRecorder != nil {
		recorder = deps.AsyncRecorder
	}
	return handlers.NewMetricsHandler(deps.Metrics, cache, recorder)
}

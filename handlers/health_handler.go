package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap"
)

// Check results reported by the readiness probe
const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkDisabled  = "disabled"
	checkMissing   = "missing"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DatabaseChecker verifies the history database
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorChecker verifies the similarity-search backend
type VectorChecker interface {
	Ping(ctx context.Context) error
	CollectionExists(ctx context.Context, name string) (bool, error)
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db         DatabaseChecker
	vectors    VectorChecker
	collection string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when history
// persistence is disabled.
func NewHealthHandler(db DatabaseChecker, vectors VectorChecker, collection string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		vectors:    vectors,
		collection: collection,
		timeout:    5 * time.Second,
		logger:     logger,
	}
}

// HandleHealth handles GET /healthz. It returns 200 whenever the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    checkHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz. The database and vector store must
// both answer; a missing collection is reported but does not fail the probe.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.db == nil:
		checks["database"] = checkDisabled
	default:
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = checkUnhealthy
			allHealthy = false
		} else {
			checks["database"] = checkHealthy
		}
	}

	if err := h.vectors.Ping(ctx); err != nil {
		h.logger.Warn("vector store health check failed", zap.Error(err))
		checks["vector_store"] = checkUnhealthy
		allHealthy = false
	} else {
		checks["vector_store"] = checkHealthy

		exists, err := h.vectors.CollectionExists(ctx, h.collection)
		switch {
		case err != nil:
			h.logger.Warn("collection check failed", zap.String("collection", h.collection), zap.Error(err))
			checks["collection"] = checkUnhealthy
			allHealthy = false
		case !exists:
			checks["collection"] = checkMissing
		default:
			checks["collection"] = checkHealthy
		}
	}

	status := checkHealthy
	httpStatus := http.StatusOK
	if !allHealthy {
		status = checkUnhealthy
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

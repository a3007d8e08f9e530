package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap"
)

// HistoryReader reads back logged queries
type HistoryReader interface {
	GetQuery(ctx context.Context, id uuid.UUID) (*models.QueryLog, error)
	ListSession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error)
	Stats(ctx context.Context, start, end time.Time) (*models.QueryStats, error)
}

// SessionQueriesResponse is one page of a session's queries
type SessionQueriesResponse struct {
	SessionID uuid.UUID          `json:"session_id"`
	Queries   []*models.QueryLog `json:"queries"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// HistoryHandler serves the query history endpoints
type HistoryHandler struct {
	history HistoryReader
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history HistoryReader, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// HandleGetQuery handles GET /api/v1/queries/{id}
func (h *HistoryHandler) HandleGetQuery(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	log, err := h.history.GetQuery(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, log)
}

// HandleListSession handles GET /api/v1/sessions/{session_id}/queries?limit=&offset=
func (h *HistoryHandler) HandleListSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := utils.ParseUUID(chi.URLParam(r, "session_id"), "session_id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	limit, err := intParam(r, "limit", 20)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	logs, err := h.history.ListSession(r.Context(), sessionID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, SessionQueriesResponse{
		SessionID: sessionID,
		Queries:   logs,
		Limit:     limit,
		Offset:    offset,
	})
}

// HandleStats handles GET /api/v1/queries/stats?start=&end= (RFC 3339)
func (h *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	start, err := timeParam(r, "start")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	end, err := timeParam(r, "end")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	stats, err := h.history.Stats(r.Context(), start, end)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, utils.NewFieldError(name, name+" must be a non-negative integer")
	}
	return v, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, utils.NewFieldError(name, name+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap"
)

type MockHistoryReader struct {
	mock.Mock
}

func (m *MockHistoryReader) GetQuery(ctx context.Context, id uuid.UUID) (*models.QueryLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryLog), args.Error(1)
}

func (m *MockHistoryReader) ListSession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QueryLog), args.Error(1)
}

func (m *MockHistoryReader) Stats(ctx context.Context, start, end time.Time) (*models.QueryStats, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryStats), args.Error(1)
}

func historyRouter(h *HistoryHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/queries/stats", h.HandleStats)
	r.Get("/api/v1/queries/{id}", h.HandleGetQuery)
	r.Get("/api/v1/sessions/{session_id}/queries", h.HandleListSession)
	return r
}

func serve(handler http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandleGetQuery(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		history := new(MockHistoryReader)
		id := uuid.New()
		log := models.NewQueryLog(models.Query{Text: "What is ROS 2?", Mode: models.QueryModeFullBook})
		log.ID = id
		log.ResponseStatus = models.StatusSuccess
		history.On("GetQuery", mock.Anything, id).Return(log, nil)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/"+id.String())

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, id.String(), body["id"])
		assert.Equal(t, "success", body["response_status"])
		history.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("GetQuery", mock.Anything, mock.Anything).Return(nil, services.ErrQueryNotFound)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("history disabled", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("GetQuery", mock.Anything, mock.Anything).Return(nil, services.ErrHistoryDisabled)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/"+uuid.NewString())
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		history := new(MockHistoryReader)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/abc")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Contains(t, body.Details, "id")
		history.AssertNotCalled(t, "GetQuery", mock.Anything, mock.Anything)
	})
}

func TestHandleListSession(t *testing.T) {
	sessionID := uuid.New()

	t.Run("default paging", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("ListSession", mock.Anything, sessionID, 20, 0).Return([]*models.QueryLog{}, nil)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/sessions/"+sessionID.String()+"/queries")

		assert.Equal(t, http.StatusOK, w.Code)
		var body SessionQueriesResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, sessionID, body.SessionID)
		assert.Empty(t, body.Queries)
		assert.Equal(t, 20, body.Limit)
		history.AssertExpectations(t)
	})

	t.Run("explicit paging", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("ListSession", mock.Anything, sessionID, 5, 10).Return([]*models.QueryLog{}, nil)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/sessions/"+sessionID.String()+"/queries?limit=5&offset=10")

		assert.Equal(t, http.StatusOK, w.Code)
		history.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		history := new(MockHistoryReader)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/sessions/"+sessionID.String()+"/queries?limit=-1")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		history.AssertNotCalled(t, "ListSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleStats(t *testing.T) {
	t.Run("window from query", func(t *testing.T) {
		history := new(MockHistoryReader)
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		history.On("Stats", mock.Anything, start, end).Return(&models.QueryStats{Total: 3, Succeeded: 2, Refused: 1}, nil)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())),
			"/api/v1/queries/stats?start=2026-01-01T00:00:00Z&end=2026-01-02T00:00:00Z")

		assert.Equal(t, http.StatusOK, w.Code)
		var stats models.QueryStats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(1), stats.Refused)
		history.AssertExpectations(t)
	})

	t.Run("defaults left to the service", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("Stats", mock.Anything, time.Time{}, time.Time{}).Return(&models.QueryStats{}, nil)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/stats")

		assert.Equal(t, http.StatusOK, w.Code)
		history.AssertExpectations(t)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		history := new(MockHistoryReader)

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())), "/api/v1/queries/stats?start=yesterday")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted window", func(t *testing.T) {
		history := new(MockHistoryReader)
		history.On("Stats", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.NewDomainError(services.ErrorTypeValidation, "start must be before end", nil))

		w := serve(historyRouter(NewHistoryHandler(history, zap.NewNop())),
			"/api/v1/queries/stats?start=2026-01-02T00:00:00Z&end=2026-01-01T00:00:00Z")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/repositories"
	"github.com/upb/grounded-qa/services"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service reads back logged queries. A nil repository means history is disabled.
type Service struct {
	repo   repositories.QueryLogRepository
	logger *zap.Logger
}

// NewService creates a history reader
func NewService(repo repositories.QueryLogRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Enabled reports whether a database backs the history
func (s *Service) Enabled() bool {
	return s.repo != nil
}

// GetQuery returns one logged query with its evidence
func (s *Service) GetQuery(ctx context.Context, id uuid.UUID) (*models.QueryLog, error) {
	if !s.Enabled() {
		return nil, services.ErrHistoryDisabled
	}

	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrQueryNotFound
		}
		return nil, services.WrapInternal("failed to load query", err)
	}
	return log, nil
}

// ListSession returns a session's queries, newest first. limit is clamped to [1,100].
func (s *Service) ListSession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error) {
	if !s.Enabled() {
		return nil, services.ErrHistoryDisabled
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.ListBySession(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list session queries", err)
	}
	if logs == nil {
		logs = []*models.QueryLog{}
	}
	return logs, nil
}

// Stats aggregates outcomes in [start, end). A zero start means the last 24 hours.
func (s *Service) Stats(ctx context.Context, start, end time.Time) (*models.QueryStats, error) {
	if !s.Enabled() {
		return nil, services.ErrHistoryDisabled
	}

	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}
	if !start.Before(end) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "start must be before end", nil)
	}

	stats, err := s.repo.GetStats(ctx, start, end)
	if err != nil {
		return nil, services.WrapInternal("failed to aggregate query stats", err)
	}
	return stats, nil
}

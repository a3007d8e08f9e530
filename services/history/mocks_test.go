package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/repositories"
)

type MockQueryLogRepository struct {
	mock.Mock
	mu      sync.Mutex
	created []*models.QueryLog
}

func (m *MockQueryLogRepository) Create(ctx context.Context, log *models.QueryLog) error {
	args := m.Called(ctx, log)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.created = append(m.created, log)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockQueryLogRepository) AddEvidence(ctx context.Context, evidence []models.QueryEvidence) error {
	return m.Called(ctx, evidence).Error(0)
}

func (m *MockQueryLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QueryLog, error) {
	args := m.Called(ctx, id)
	if log := args.Get(0); log != nil {
		return log.(*models.QueryLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.QueryLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) GetStats(ctx context.Context, start, end time.Time) (*models.QueryStats, error) {
	args := m.Called(ctx, start, end)
	if stats := args.Get(0); stats != nil {
		return stats.(*models.QueryStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
	return m
}

func (m *MockQueryLogRepository) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// passthroughTxManager runs fn directly and reports its error
type passthroughTxManager struct {
	mu        sync.Mutex
	calls     int
	rollbacks int
}

func (p *passthroughTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, nil
}

func (p *passthroughTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	err := fn(ctx, nil)
	p.mu.Lock()
	p.calls++
	if err != nil {
		p.rollbacks++
	}
	p.mu.Unlock()
	return err
}

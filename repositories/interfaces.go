package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
)

// ErrNotFound is wrapped by repositories when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// QueryLogRepository handles query history data operations
type QueryLogRepository interface {
	// Create inserts the query row
	Create(ctx context.Context, log *models.QueryLog) error

	// AddEvidence inserts the evidence rows of a logged query
	AddEvidence(ctx context.Context, evidence []models.QueryEvidence) error

	// GetByID retrieves a logged query with its evidence
	GetByID(ctx context.Context, id uuid.UUID) (*models.QueryLog, error)

	// ListBySession retrieves a session's queries, newest first
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error)

	// GetStats aggregates outcomes in a time window
	GetStats(ctx context.Context, start, end time.Time) (*models.QueryStats, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) QueryLogRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	QueryLogs QueryLogRepository
}

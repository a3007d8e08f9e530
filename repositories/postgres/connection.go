package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/grounded-qa/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Wrap adapts an existing pool, used by tests and by callers sharing a pool
func Wrap(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema creates the query history tables
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS queries (
			id UUID PRIMARY KEY,
			session_id UUID,
			query_text TEXT NOT NULL,
			query_type VARCHAR(32) NOT NULL,
			selected_text TEXT,
			response_text TEXT NOT NULL,
			response_status VARCHAR(16) NOT NULL,
			retrieved_chunks JSONB NOT NULL DEFAULT '[]',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			grounding_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			grounding_passed BOOLEAN NOT NULL DEFAULT false,
			processing_time_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS query_evidence (
			query_id UUID NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
			chunk_id UUID NOT NULL,
			document_id UUID NOT NULL,
			source_path TEXT NOT NULL DEFAULT '',
			similarity_score DOUBLE PRECISION NOT NULL,
			rank INTEGER NOT NULL,
			PRIMARY KEY (query_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_queries_session_id ON queries(session_id);
		CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
		CREATE INDEX IF NOT EXISTS idx_queries_status ON queries(response_status);
		CREATE INDEX IF NOT EXISTS idx_query_evidence_chunk_id ON query_evidence(chunk_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

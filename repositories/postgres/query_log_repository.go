package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/repositories"
	"go.uber.org/zap"
)

const queryLogColumns = `
	id, session_id, query_text, query_type, selected_text, response_text,
	response_status, retrieved_chunks, confidence, grounding_score,
	grounding_passed, processing_time_ms, created_at`

// QueryLogRepository implements the repositories.QueryLogRepository interface
type QueryLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQueryLogRepository creates a new query log repository
func NewQueryLogRepository(db *DB, logger *zap.Logger) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the query row
func (r *QueryLogRepository) Create(ctx context.Context, log *models.QueryLog) error {
	query := `
		INSERT INTO queries (` + queryLogColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	exec := executorFor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		log.ID,
		log.SessionID,
		log.QueryText,
		log.QueryType,
		log.SelectedText,
		log.ResponseText,
		log.ResponseStatus,
		[]byte(log.RetrievedChunks),
		log.Confidence,
		log.GroundingScore,
		log.GroundingPassed,
		log.ProcessingTimeMs,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query log: %w", err)
	}

	r.logger.Debug("query log created",
		zap.String("id", log.ID.String()),
		zap.String("status", string(log.ResponseStatus)))
	return nil
}

// AddEvidence inserts the evidence rows of a logged query
func (r *QueryLogRepository) AddEvidence(ctx context.Context, evidence []models.QueryEvidence) error {
	query := `
		INSERT INTO query_evidence (
			query_id, chunk_id, document_id, source_path, similarity_score, rank
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	exec := executorFor(ctx, r.db)
	for _, e := range evidence {
		if _, err := exec.ExecContext(ctx, query,
			e.QueryID,
			e.ChunkID,
			e.DocumentID,
			e.SourcePath,
			e.Similarity,
			e.Rank,
		); err != nil {
			return fmt.Errorf("failed to insert query evidence: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a logged query with its evidence
func (r *QueryLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QueryLog, error) {
	query := `SELECT ` + queryLogColumns + ` FROM queries WHERE id = $1`

	exec := executorFor(ctx, r.db)
	log, err := scanQueryLog(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query log %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get query log: %w", err)
	}

	evidence, err := r.getEvidence(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Evidence = evidence

	return log, nil
}

// ListBySession retrieves a session's queries, newest first
func (r *QueryLogRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.QueryLog, error) {
	query := `
		SELECT ` + queryLogColumns + `
		FROM queries
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	exec := executorFor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query query logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.QueryLog, 0)
	for rows.Next() {
		log, err := scanQueryLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query logs: %w", err)
	}

	return logs, nil
}

// GetStats aggregates outcomes in a time window
func (r *QueryLogRepository) GetStats(ctx context.Context, start, end time.Time) (*models.QueryStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN response_status = 'success' THEN 1 END) AS succeeded,
			COUNT(CASE WHEN response_status = 'refused' THEN 1 END) AS refused,
			COUNT(CASE WHEN response_status = 'error' THEN 1 END) AS errored,
			COALESCE(AVG(confidence), 0) AS avg_confidence,
			COALESCE(AVG(processing_time_ms), 0) AS avg_latency_ms
		FROM queries
		WHERE created_at >= $1 AND created_at <= $2
	`

	exec := executorFor(ctx, r.db)
	stats := &models.QueryStats{}

	err := exec.QueryRowContext(ctx, query, start, end).Scan(
		&stats.Total,
		&stats.Succeeded,
		&stats.Refused,
		&stats.Errored,
		&stats.AverageConfidence,
		&stats.AverageLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get query stats: %w", err)
	}

	return stats, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *QueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     r.db,
		logger: r.logger,
	}
}

func (r *QueryLogRepository) getEvidence(ctx context.Context, queryID uuid.UUID) ([]models.QueryEvidence, error) {
	query := `
		SELECT query_id, chunk_id, document_id, source_path, similarity_score, rank
		FROM query_evidence
		WHERE query_id = $1
		ORDER BY rank
	`

	exec := executorFor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	evidence := make([]models.QueryEvidence, 0)
	for rows.Next() {
		var e models.QueryEvidence
		if err := rows.Scan(&e.QueryID, &e.ChunkID, &e.DocumentID, &e.SourcePath, &e.Similarity, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		evidence = append(evidence, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence: %w", err)
	}
	return evidence, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueryLog(row rowScanner) (*models.QueryLog, error) {
	log := &models.QueryLog{}
	err := row.Scan(
		&log.ID,
		&log.SessionID,
		&log.QueryText,
		&log.QueryType,
		&log.SelectedText,
		&log.ResponseText,
		&log.ResponseStatus,
		&log.RetrievedChunks,
		&log.Confidence,
		&log.GroundingScore,
		&log.GroundingPassed,
		&log.ProcessingTimeMs,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}

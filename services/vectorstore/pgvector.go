package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/grounded-qa/services"
	"go.uber.org/zap"
)

// PGVectorBackend stores points in PostgreSQL with the pgvector extension.
// All collections share one points table keyed by collection name.
type PGVectorBackend struct {
	db     *sql.DB
	owned  bool
	logger *zap.Logger

	mu   sync.RWMutex
	dims map[string]int
}

// NewPGVectorBackend uses an existing pool. Close leaves the pool open.
func NewPGVectorBackend(db *sql.DB, logger *zap.Logger) *PGVectorBackend {
	return &PGVectorBackend{
		db:     db,
		logger: logger,
		dims:   make(map[string]int),
	}
}

// OpenPGVector opens a dedicated pool for the vector store
func OpenPGVector(ctx context.Context, dsn string, logger *zap.Logger) (*PGVectorBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping vector database: %w", err)
	}
	b := NewPGVectorBackend(db, logger)
	b.owned = true
	return b, nil
}

// CollectionExists reports whether the collection has been created
func (b *PGVectorBackend) CollectionExists(ctx context.Context, name string) (bool, error) {
	var hasTable bool
	if err := b.db.QueryRowContext(ctx,
		`SELECT to_regclass('vector_collections') IS NOT NULL`).Scan(&hasTable); err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if !hasTable {
		return false, nil
	}

	_, err := b.dimension(ctx, name)
	if errors.Is(err, services.ErrCollectionMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateCollection installs the extension and tables, then registers the collection
func (b *PGVectorBackend) CreateCollection(ctx context.Context, name string, dimension int) error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS vector_collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS vector_points (
			collection TEXT NOT NULL REFERENCES vector_collections(name) ON DELETE CASCADE,
			id TEXT NOT NULL,
			embedding vector NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (collection, id)
		);
	`
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize vector schema: %w", err)
	}

	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO vector_collections (name, dimension) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, dimension); err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}

	b.mu.Lock()
	b.dims[name] = dimension
	b.mu.Unlock()
	return nil
}

// Search returns the topK points closest to vector by cosine distance
func (b *PGVectorBackend) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	if err := b.checkDimension(ctx, name, len(vector)); err != nil {
		return nil, err
	}

	query := `
		SELECT id, 1 - (embedding <=> $2::vector) AS score, payload
		FROM vector_points
		WHERE collection = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := b.db.QueryContext(ctx, query, name, floatsToPgVectorLiteral(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var (
			h   Hit
			raw []byte
		)
		if err := rows.Scan(&h.ID, &h.Score, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		h.Score = clampScore(h.Score)
		if err := decodePayload(raw, &h.Payload); err != nil {
			b.logger.Warn("dropping hit with unreadable payload", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hits: %w", err)
	}
	return hits, nil
}

// Upsert writes points, replacing any with the same id
func (b *PGVectorBackend) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if err := b.checkDimension(ctx, name, len(p.Vector)); err != nil {
			return err
		}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO vector_points (collection, id, embedding, payload)
		VALUES ($1, $2, $3::vector, $4)
		ON CONFLICT (collection, id) DO UPDATE
		SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload
	`
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, name, p.ID, floatsToPgVectorLiteral(p.Vector), payload); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Count returns the number of points in the collection
func (b *PGVectorBackend) Count(ctx context.Context, name string) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vector_points WHERE collection = $1`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Ping checks connectivity
func (b *PGVectorBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close releases the pool when this backend opened it
func (b *PGVectorBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

func (b *PGVectorBackend) dimension(ctx context.Context, name string) (int, error) {
	b.mu.RLock()
	dim, ok := b.dims[name]
	b.mu.RUnlock()
	if ok {
		return dim, nil
	}

	err := b.db.QueryRowContext(ctx,
		`SELECT dimension FROM vector_collections WHERE name = $1`, name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, services.ErrCollectionMissing
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}

	b.mu.Lock()
	b.dims[name] = dim
	b.mu.Unlock()
	return dim, nil
}

func (b *PGVectorBackend) checkDimension(ctx context.Context, name string, got int) error {
	want, err := b.dimension(ctx, name)
	if err != nil {
		return err
	}
	if want != got {
		return services.NewDimensionMismatch(want, got)
	}
	return nil
}

// floatsToPgVectorLiteral renders a vector in pgvector's text format
func floatsToPgVectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func decodePayload(raw []byte, dst *map[string]any) error {
	*dst = map[string]any{}
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return dec.Decode(dst)
}

package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/upb/grounded-qa/services"
	"go.uber.org/zap"
)

// SQLiteBackend is an embedded store that ranks points by brute-force cosine similarity.
// Suited to a single book; use PGVectorBackend for larger corpora.
type SQLiteBackend struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteBackend opens (or creates) the database file at path
func NewSQLiteBackend(path string, logger *zap.Logger) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	b := &SQLiteBackend{db: db, logger: logger}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS points (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		embedding TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

// CollectionExists reports whether the collection has been created
func (b *SQLiteBackend) CollectionExists(ctx context.Context, name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("querying collections: %w", err)
	}
	return n > 0, nil
}

// CreateCollection registers the collection and its dimension
func (b *SQLiteBackend) CreateCollection(ctx context.Context, name string, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, dimension) VALUES (?, ?)`, name, dimension)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// Search scores every point in the collection and returns the best topK
func (b *SQLiteBackend) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkDimension(ctx, name, len(vector)); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT id, embedding, payload FROM points WHERE collection = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			id                 string
			embedding, payload []byte
			stored             []float32
		)
		if err := rows.Scan(&id, &embedding, &payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embedding, &stored); err != nil {
			b.logger.Warn("skipping point with corrupted embedding", zap.String("id", id))
			continue
		}

		h := Hit{ID: id, Score: clampScore(cosineSimilarity(vector, stored))}
		if err := decodePayload(payload, &h.Payload); err != nil {
			b.logger.Warn("skipping point with unreadable payload", zap.String("id", id), zap.Error(err))
			continue
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Upsert writes points, replacing any with the same id
func (b *SQLiteBackend) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range points {
		if err := b.checkDimension(ctx, name, len(p.Vector)); err != nil {
			return err
		}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO points (collection, id, embedding, payload)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		embedding, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, name, p.ID, string(embedding), string(payload)); err != nil {
			return fmt.Errorf("inserting point %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of points in the collection
func (b *SQLiteBackend) Count(ctx context.Context, name string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE collection = ?`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return n, nil
}

// Ping checks the database handle
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// checkDimension expects the caller to hold mu
func (b *SQLiteBackend) checkDimension(ctx context.Context, name string, got int) error {
	var want int
	err := b.db.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, name).Scan(&want)
	if errors.Is(err, sql.ErrNoRows) {
		return services.ErrCollectionMissing
	}
	if err != nil {
		return fmt.Errorf("reading collection dimension: %w", err)
	}
	if want != got {
		return services.NewDimensionMismatch(want, got)
	}
	return nil
}

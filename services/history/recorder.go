// Package history stores finished pipeline runs and reads them back.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/repositories"
	"go.uber.org/zap"
)

// Recorder accepts finished query logs. Record must not block the pipeline.
type Recorder interface {
	Record(log *models.QueryLog) error
}

// NopRecorder discards every log; used when no database is configured
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(*models.QueryLog) error { return nil }

// Config holds configuration for the AsyncRecorder
type Config struct {
	BufferSize   int           // Size of the pending log channel
	WorkerCount  int           // Number of concurrent writers
	WriteTimeout time.Duration // Bound on one transactional write
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// AsyncRecorder writes query logs from a pool of background workers.
// Each log and its evidence rows are written in one transaction.
type AsyncRecorder struct {
	repo      repositories.QueryLogRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
	config    Config

	logChan chan *models.QueryLog
	wg      sync.WaitGroup
	started bool
	stopped bool
	mu      sync.Mutex

	written uint64
	failed  uint64
	dropped uint64
}

// NewAsyncRecorder creates a recorder. Call Start before Record.
func NewAsyncRecorder(repo repositories.QueryLogRepository, txManager repositories.TransactionManager, logger *zap.Logger, config Config) *AsyncRecorder {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &AsyncRecorder{
		repo:      repo,
		txManager: txManager,
		logger:    logger,
		config:    config,
		logChan:   make(chan *models.QueryLog, config.BufferSize),
	}
}

// Start starts the background workers
func (r *AsyncRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("history recorder already started")
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	r.logger.Info("started history recorder",
		zap.Int("worker_count", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize))
	return nil
}

// Stop stops accepting logs and waits for pending ones to be written
func (r *AsyncRecorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("history recorder not running")
	}
	r.stopped = true
	close(r.logChan)
	r.mu.Unlock()

	r.logger.Info("stopping history recorder", zap.Int("pending_logs", len(r.logChan)))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("history recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("history recorder stop timeout after %v", timeout)
	}
}

// Record queues a log without blocking; it is dropped when the buffer is full
func (r *AsyncRecorder) Record(log *models.QueryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || r.stopped {
		return fmt.Errorf("history recorder not running")
	}

	select {
	case r.logChan <- log:
		return nil
	default:
		r.dropped++
		r.logger.Warn("history buffer full, dropping query log",
			zap.String("query_id", log.ID.String()),
			zap.String("status", string(log.ResponseStatus)))
		return fmt.Errorf("history buffer full")
	}
}

func (r *AsyncRecorder) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("history worker started", zap.Int("worker_id", id))

	for log := range r.logChan {
		err := r.write(log)

		r.mu.Lock()
		if err != nil {
			r.failed++
		} else {
			r.written++
		}
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("failed to write query log",
				zap.Int("worker_id", id),
				zap.String("query_id", log.ID.String()),
				zap.Error(err))
		}
	}

	r.logger.Debug("history worker stopped", zap.Int("worker_id", id))
}

func (r *AsyncRecorder) write(log *models.QueryLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	return r.txManager.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		if err := r.repo.Create(ctx, log); err != nil {
			return err
		}
		if len(log.Evidence) == 0 {
			return nil
		}
		return r.repo.AddEvidence(ctx, log.Evidence)
	})
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize  int    `json:"buffer_size"`
	PendingLogs int    `json:"pending_logs"`
	WorkerCount int    `json:"worker_count"`
	Written     uint64 `json:"written"`
	Failed      uint64 `json:"failed"`
	Dropped     uint64 `json:"dropped"`
	Started     bool   `json:"started"`
}

// GetStats returns statistics about the recorder
func (r *AsyncRecorder) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		BufferSize:  r.config.BufferSize,
		PendingLogs: len(r.logChan),
		WorkerCount: r.config.WorkerCount,
		Written:     r.written,
		Failed:      r.failed,
		Dropped:     r.dropped,
		Started:     r.started && !r.stopped,
	}
}

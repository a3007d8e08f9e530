package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileIngester ingests one changed file
type FileIngester interface {
	Watches(path string) bool
	IngestFile(ctx context.Context, path string) (*FileResult, error)
}

// Watcher re-ingests files created or written under a directory.
// Bursts of events for one path are collapsed into a single ingest.
type Watcher struct {
	ingester FileIngester
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher
func NewWatcher(ingester FileIngester, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{ingester: ingester, debounce: debounce, logger: logger}
}

// Run watches dir until ctx is cancelled
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching corpus directory", zap.String("dir", dir))

	ready := make(chan string, 100)
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(w.debounce)
			return
		}
		timers[path] = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", zap.String("dir", dir))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.ingester.Watches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case path := <-ready:
			fr, err := w.ingester.IngestFile(ctx, path)
			if err != nil {
				w.logger.Error("re-ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			w.logger.Info("re-ingested file",
				zap.String("path", path),
				zap.Int("chunks", fr.Chunks))
		}
	}
}

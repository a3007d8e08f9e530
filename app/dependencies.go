package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/internal/observability"
	"github.com/upb/grounded-qa/internal/retry"
	"github.com/upb/grounded-qa/repositories/postgres"
	"github.com/upb/grounded-qa/services/embedding"
	"github.com/upb/grounded-qa/services/generation"
	"github.com/upb/grounded-qa/services/history"
	"github.com/upb/grounded-qa/services/ingest"
	"github.com/upb/grounded-qa/services/query"
	"github.com/upb/grounded-qa/services/retrieval"
	"github.com/upb/grounded-qa/services/scoring"
	"github.com/upb/grounded-qa/services/validation"
	"github.com/upb/grounded-qa/services/vectorstore"
	"go.uber.org/zap"
)

// cacheCleanupInterval is how often expired query embeddings are evicted
const cacheCleanupInterval = time.Minute

// Dependencies holds every long-lived component of the process. It is the
// single wiring point: entry points build it once and pass it down.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// History database. Both are nil when no database is configured.
	RepoFactory *postgres.RepositoryFactory
	DB          *postgres.DB

	// Similarity search
	Vectors vectorstore.Backend

	// Pipeline components
	Embedder       embedding.Embedder
	EmbeddingCache *embedding.CachedEmbedder // nil when caching is disabled
	Retriever      *retrieval.Retriever
	Validator      *validation.ContextValidator
	Generator      generation.Generator
	Scorer         *scoring.ConfidenceScorer
	Metrics        *observability.PipelineMetrics
	Orchestrator   *query.Orchestrator

	// History
	Recorder      history.Recorder
	AsyncRecorder *history.AsyncRecorder // nil when history is disabled
	History       *history.Service

	// Corpus loading
	Ingest *ingest.Pipeline

	stopWorkers context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     observability.NewPipelineMetrics(),
		stopWorkers: stopWorkers,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initVectorStore(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	deps.initEmbedder(workerCtx, cfg)

	if err := deps.initHistory(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}

	deps.initPipeline(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("vector_backend", cfg.VectorStore.Backend),
		zap.String("collection", cfg.VectorStore.Collection),
		zap.Bool("history", deps.History.Enabled()),
		zap.String("grounding_policy", cfg.Pipeline.GroundingPolicy))
	return deps, nil
}

// initDatabase opens the history database when one is configured
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no history database configured, query history disabled")
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return err
	}
	return nil
}

// initVectorStore opens the configured similarity-search backend. The
// postgres backend shares the history pool unless a separate URL is set.
func (d *Dependencies) initVectorStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.VectorStore.Backend {
	case config.BackendMemory:
		d.Vectors = vectorstore.NewMemoryBackend()
	case config.BackendSQLite:
		backend, err := vectorstore.NewSQLiteBackend(cfg.VectorStore.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Vectors = backend
	case config.BackendPostgres:
		if cfg.VectorStore.PostgresURL == "" && d.DB != nil {
			d.Vectors = vectorstore.NewPGVectorBackend(d.DB.DB, d.Logger)
			break
		}
		backend, err := vectorstore.OpenPGVector(ctx, cfg.VectorStoreDSN(), d.Logger)
		if err != nil {
			return err
		}
		d.Vectors = backend
	default:
		return fmt.Errorf("unknown vector backend %q", cfg.VectorStore.Backend)
	}

	d.Logger.Info("vector store ready", zap.String("backend", cfg.VectorStore.Backend))
	return nil
}

// initEmbedder builds the embedding client and its query cache
func (d *Dependencies) initEmbedder(workerCtx context.Context, cfg *config.Config) {
	base := embedding.NewOpenAIEmbedder(cfg.Embedding, cfg.VectorStore.Dimension, d.Logger)
	d.Embedder = base

	if cfg.Embedding.CacheSize > 0 {
		d.EmbeddingCache = embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL)
		d.EmbeddingCache.StartCleanupWorker(workerCtx, cacheCleanupInterval)
		d.Embedder = d.EmbeddingCache
	}
}

// initHistory starts the async recorder when a database is available
func (d *Dependencies) initHistory(cfg *config.Config) error {
	if d.RepoFactory == nil {
		d.Recorder = history.NopRecorder{}
		d.History = history.NewService(nil, d.Logger)
		return nil
	}

	repos := d.RepoFactory.NewRepositories()
	recorder := history.NewAsyncRecorder(repos.QueryLogs, d.RepoFactory.GetTransactionManager(), d.Logger, history.Config{
		BufferSize:   cfg.Observability.HistoryBufferSize,
		WorkerCount:  cfg.Observability.HistoryWorkers,
		WriteTimeout: history.DefaultConfig().WriteTimeout,
	})
	if err := recorder.Start(); err != nil {
		return err
	}

	d.AsyncRecorder = recorder
	d.Recorder = recorder
	d.History = history.NewService(repos.QueryLogs, d.Logger)
	return nil
}

// initPipeline assembles the query pipeline and the ingest pipeline
func (d *Dependencies) initPipeline(cfg *config.Config) {
	d.Retriever = retrieval.NewRetriever(
		d.Embedder,
		d.Vectors,
		cfg.VectorStore.Collection,
		retry.Policy{MaxRetries: cfg.VectorStore.MaxRetries, BaseDelay: cfg.VectorStore.RetryBaseDelay},
		d.Metrics,
		d.Logger.Named("retriever"),
	)
	d.Validator = validation.NewContextValidator(validation.ThresholdsFromConfig(cfg.Pipeline), d.Logger.Named("validator"))
	d.Generator = generation.NewOpenAIGenerator(cfg.Generation, d.Logger.Named("generator"))
	d.Scorer = scoring.NewConfidenceScorer(cfg.Pipeline.ConfidenceBoost)

	d.Orchestrator = query.NewOrchestrator(
		d.Retriever,
		d.Validator,
		d.Generator,
		d.Scorer,
		d.Recorder,
		d.Metrics,
		query.OptionsFromConfig(cfg),
		d.Logger.Named("pipeline"),
	)

	d.Ingest = ingest.NewPipeline(d.Embedder, d.Vectors, cfg.VectorStore.Collection, cfg.Ingest, d.Logger.Named("ingest"))
}

// Close gracefully shuts down all dependencies. Pending history writes are
// flushed before the database closes.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AsyncRecorder != nil {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AsyncRecorder.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop history recorder: %w", err))
		}
	}

	if d.stopWorkers != nil {
		d.stopWorkers()
	}

	if d.Vectors != nil {
		if err := d.Vectors.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vector store: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}

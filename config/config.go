package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector store backends
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory" // Process-local, for demos and tests
)

// Grounding policies
const (
	GroundingAdvisory = "advisory" // Log failed grounding, release the answer
	GroundingEnforce  = "enforce"  // Refuse answers that fail grounding
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      *DatabaseConfig // Optional: query history persistence. When nil, history is not stored.
	VectorStore   VectorStoreConfig
	Embedding     EmbeddingConfig
	Generation    GenerationConfig
	Pipeline      PipelineConfig
	Ingest        IngestConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// VectorStoreConfig selects and configures the similarity-search backend
type VectorStoreConfig struct {
	Backend        string // postgres, sqlite or memory
	Collection     string
	Dimension      int
	PostgresURL    string // Falls back to the history database DSN when empty
	SQLitePath     string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// EmbeddingConfig holds the OpenAI-compatible embeddings endpoint configuration
type EmbeddingConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// GenerationConfig holds the OpenAI-compatible chat completion endpoint configuration
type GenerationConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// PipelineConfig holds query pipeline limits and thresholds
type PipelineConfig struct {
	MaxQueryLength      int
	TopK                int
	Deadline            time.Duration
	GroundingPolicy     string
	MinSimilarity       float64
	MinContextChars     int
	MinOverlap          float64
	MinGroundingScore   float64
	ExternalFlagPenalty float64
	ConfidenceBoost     float64
}

// IngestConfig holds corpus loading and chunking settings
type IngestConfig struct {
	ChunkSize     int
	ChunkOverlap  int
	BatchSize     int
	Extensions    []string
	WatchDebounce time.Duration
}

// ObservabilityConfig holds logging and history worker configuration
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string // json or text
	HistoryWorkers    int
	HistoryBufferSize int
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	return Load(ctx, ".env")
}

// Load reads the given env files (missing files are ignored) and builds the configuration
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 100*time.Second),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: loadDatabaseConfig(),
		VectorStore: VectorStoreConfig{
			Backend:        getEnv("VECTOR_BACKEND", BackendSQLite),
			Collection:     getEnv("VECTOR_COLLECTION", "book_chunks"),
			Dimension:      getEnvAsInt("EMBEDDING_DIMENSION", 384),
			PostgresURL:    getEnv("VECTOR_DATABASE_URL", ""),
			SQLitePath:     getEnv("VECTOR_SQLITE_PATH", "data/vectors.db"),
			MaxRetries:     getEnvAsInt("RETRIEVAL_MAX_RETRIES", 2),
			RetryBaseDelay: getEnvAsDuration("RETRIEVAL_RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Embedding: EmbeddingConfig{
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8080/v1"),
			Model:     getEnv("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			Timeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 15*time.Second),
			CacheSize: getEnvAsInt("EMBEDDING_CACHE_SIZE", 512),
			CacheTTL:  getEnvAsDuration("EMBEDDING_CACHE_TTL", 10*time.Minute),
		},
		Generation: GenerationConfig{
			APIKey:         getEnv("OPENROUTER_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:        getEnv("GENERATION_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("GENERATION_MODEL", "google/gemini-pro"),
			Temperature:    float32(getEnvAsFloat("GENERATION_TEMPERATURE", 0.1)),
			MaxTokens:      getEnvAsInt("MAX_RESPONSE_TOKENS", 500),
			Timeout:        getEnvAsDuration("GENERATION_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvAsInt("GENERATION_MAX_RETRIES", 2),
			RetryBaseDelay: getEnvAsDuration("GENERATION_RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Pipeline: PipelineConfig{
			MaxQueryLength:      getEnvAsInt("MAX_QUERY_LENGTH", 1000),
			TopK:                getEnvAsInt("TOP_K", 5),
			Deadline:            getEnvAsDuration("PIPELINE_DEADLINE", 90*time.Second),
			GroundingPolicy:     getEnv("GROUNDING_POLICY", GroundingAdvisory),
			MinSimilarity:       getEnvAsFloat("MIN_SIMILARITY", 0.35),
			MinContextChars:     getEnvAsInt("MIN_CONTEXT_CHARS", 50),
			MinOverlap:          getEnvAsFloat("MIN_GROUNDING_OVERLAP", 0.3),
			MinGroundingScore:   getEnvAsFloat("MIN_GROUNDING_SCORE", 0.7),
			ExternalFlagPenalty: getEnvAsFloat("EXTERNAL_FLAG_PENALTY", 0.3),
			ConfidenceBoost:     getEnvAsFloat("CONFIDENCE_BOOST", 0.2),
		},
		Ingest: IngestConfig{
			ChunkSize:     getEnvAsInt("CHUNK_SIZE", 200),
			ChunkOverlap:  getEnvAsInt("CHUNK_OVERLAP", 40),
			BatchSize:     getEnvAsInt("EMBED_BATCH_SIZE", 32),
			Extensions:    getEnvAsList("INGEST_EXTENSIONS", []string{".md", ".txt", ".pdf"}),
			WatchDebounce: getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Observability: ObservabilityConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			HistoryWorkers:    getEnvAsInt("HISTORY_WORKERS", 2),
			HistoryBufferSize: getEnvAsInt("HISTORY_BUFFER_SIZE", 1000),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database != nil && c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	switch c.VectorStore.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.VectorStore.SQLitePath == "" {
			return fmt.Errorf("sqlite vector store path is required")
		}
	case BackendPostgres:
		if c.VectorStoreDSN() == "" {
			return fmt.Errorf("postgres vector store requires VECTOR_DATABASE_URL or a history database")
		}
	default:
		return fmt.Errorf("unknown vector backend %q", c.VectorStore.Backend)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector collection name is required")
	}
	if c.VectorStore.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	if c.Pipeline.MaxQueryLength <= 0 {
		return fmt.Errorf("max query length must be positive")
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	if c.Pipeline.GroundingPolicy != GroundingAdvisory && c.Pipeline.GroundingPolicy != GroundingEnforce {
		return fmt.Errorf("grounding policy must be %q or %q", GroundingAdvisory, GroundingEnforce)
	}
	for name, v := range map[string]float64{
		"min similarity":        c.Pipeline.MinSimilarity,
		"min grounding overlap": c.Pipeline.MinOverlap,
		"min grounding score":   c.Pipeline.MinGroundingScore,
		"external flag penalty": c.Pipeline.ExternalFlagPenalty,
		"confidence boost":      c.Pipeline.ConfidenceBoost,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	if c.Ingest.ChunkSize <= 0 || c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap must be smaller than chunk size")
	}

	if c.IsProduction() && c.Generation.APIKey == "" {
		return fmt.Errorf("generation API key is required in production")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// VectorStoreDSN returns the PostgreSQL DSN for the pgvector backend
func (c *Config) VectorStoreDSN() string {
	if c.VectorStore.PostgresURL != "" {
		return c.VectorStore.PostgresURL
	}
	if c.Database != nil {
		return c.Database.DSN()
	}
	return ""
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil && u.Host != "" {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Returns nil when neither is set.
func loadDatabaseConfig() *DatabaseConfig {
	pool := func(cfg *DatabaseConfig) *DatabaseConfig {
		cfg.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 25)
		cfg.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
		cfg.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
		return cfg
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return pool(&DatabaseConfig{ConnectionString: dbURL})
	}
	if getEnv("DB_HOST", "") == "" {
		return nil
	}
	return pool(&DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "grounded"),
		Password: getEnv("DB_PASSWORD", ""),
		Database: getEnv("DB_NAME", "grounded_qa"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	})
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

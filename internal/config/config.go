package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Chunk store backends
const (
	ChunkStorePostgres = "postgres"
	ChunkStoreS3       = "s3"
	ChunkStoreSQLite   = "sqlite"
)

// Embedding providers
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderLocal  = "local"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL       string `envconfig:"DATABASE_URL" required:"true"`
	VectorDatabaseURL string `envconfig:"VECTOR_DATABASE_URL"`
	DBMaxConns        int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"0"` // 0 selects the provider default
	LocalModelDir       string `envconfig:"LOCAL_MODEL_DIR" default:"./models"`

	ChatModel             string  `envconfig:"CHAT_MODEL" default:"gpt-3.5-turbo"`
	GenerationTemperature float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.3"`
	GenerationMaxTokens   int     `envconfig:"GENERATION_MAX_TOKENS" default:"1000"`

	// Answer pipeline defaults, overridable per request
	DefaultTopK         int           `envconfig:"DEFAULT_TOP_K" default:"5"`
	MaxTopK             int           `envconfig:"MAX_TOP_K" default:"20"`
	SimilarityThreshold float64       `envconfig:"SIMILARITY_THRESHOLD" default:"0.5"`
	ContextTokenBudget  int           `envconfig:"CONTEXT_TOKEN_BUDGET" default:"3000"`
	GroundingMinOverlap float64       `envconfig:"GROUNDING_MIN_OVERLAP" default:"0.3"`
	EmbedTimeout        time.Duration `envconfig:"EMBED_TIMEOUT" default:"10s"`
	SearchTimeout       time.Duration `envconfig:"SEARCH_TIMEOUT" default:"5s"`
	FetchTimeout        time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`
	GenerateTimeout     time.Duration `envconfig:"GENERATE_TIMEOUT" default:"30s"`

	ChunkStore string `envconfig:"CHUNK_STORE" default:"postgres"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"bookrag.db"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"bookrag-chunks"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"chunks/"`

	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	RateLimitRPS   float64  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	TrustedProxy   bool     `envconfig:"TRUSTED_PROXY" default:"false"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	AuditInterval time.Duration `envconfig:"AUDIT_INTERVAL" default:"0s"`
	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"50"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BOOKRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.VectorDatabaseURL == "" {
		cfg.VectorDatabaseURL = cfg.DatabaseURL
	}
	cfg.ChunkStore = strings.ToLower(strings.TrimSpace(cfg.ChunkStore))
	cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the answer pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MaxTopK < 1 {
		return fmt.Errorf("invalid config: MAX_TOP_K must be positive, got %d", c.MaxTopK)
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > c.MaxTopK {
		return fmt.Errorf("invalid config: DEFAULT_TOP_K must be within [1, %d], got %d", c.MaxTopK, c.DefaultTopK)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid config: SIMILARITY_THRESHOLD must be within [0, 1], got %v", c.SimilarityThreshold)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("invalid config: CONTEXT_TOKEN_BUDGET must be positive, got %d", c.ContextTokenBudget)
	}
	if c.GroundingMinOverlap < 0 || c.GroundingMinOverlap > 1 {
		return fmt.Errorf("invalid config: GROUNDING_MIN_OVERLAP must be within [0, 1], got %v", c.GroundingMinOverlap)
	}

	switch c.ChunkStore {
	case ChunkStorePostgres, ChunkStoreSQLite:
	case ChunkStoreS3:
		if !c.HasS3() {
			return fmt.Errorf("invalid config: CHUNK_STORE=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY")
		}
	default:
		return fmt.Errorf("invalid config: unknown CHUNK_STORE %q", c.ChunkStore)
	}

	switch c.EmbeddingProvider {
	case EmbeddingProviderOpenAI, EmbeddingProviderLocal:
	default:
		return fmt.Errorf("invalid config: unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// HasSeparateVectorDatabase reports whether embeddings live outside the primary database.
func (c *Config) HasSeparateVectorDatabase() bool {
	return c.VectorDatabaseURL != "" && c.VectorDatabaseURL != c.DatabaseURL
}

package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/database"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/onnx"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/openai"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/repository"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// app holds the wired answer pipeline shared by serve, mcp and audit.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pool       *pgxpool.Pool
	vectorPool *pgxpool.Pool

	vectorIndex *repository.VectorIndexRepository
	chunkStore  service.ChunkStore
	answers     *service.AnswerService
	chat        *service.ChatService
	stats       *service.StatsService
	audit       *service.AuditService

	readiness map[string]handlers.Pinger
	closers   []func() error
}

// answerConfig translates environment configuration into the pipeline's explicit settings.
func answerConfig(cfg *config.Config) service.AnswerConfig {
	ac := service.DefaultAnswerConfig()
	ac.DefaultTopK = cfg.DefaultTopK
	ac.MaxTopK = cfg.MaxTopK
	ac.SimilarityThreshold = cfg.SimilarityThreshold
	ac.ContextTokenBudget = cfg.ContextTokenBudget
	ac.GroundingMinOverlap = cfg.GroundingMinOverlap
	ac.EmbedTimeout = cfg.EmbedTimeout
	ac.SearchTimeout = cfg.SearchTimeout
	ac.FetchTimeout = cfg.FetchTimeout
	ac.GenerateTimeout = cfg.GenerateTimeout
	return ac
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		readiness: make(map[string]handlers.Pinger),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error { a.pool.Close(); return nil })
	a.readiness["postgres"] = a.pool
	logger.Info("connected to database")

	a.vectorPool = a.pool
	if cfg.HasSeparateVectorDatabase() {
		a.vectorPool, err = database.NewPool(ctx, database.Config{URL: cfg.VectorDatabaseURL, MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to vector database: %w", err)
		}
		a.closers = append(a.closers, func() error { a.vectorPool.Close(); return nil })
		a.readiness["vector_database"] = a.vectorPool
		logger.Info("connected to vector database")
	}
	a.vectorIndex = repository.NewVectorIndexRepository(a.vectorPool, cfg.MaxTopK)

	if a.chunkStore, err = a.newChunkStore(ctx); err != nil {
		return nil, err
	}

	embedder, err := a.newEmbedder()
	if err != nil {
		return nil, err
	}

	apiKey, err := openai.ResolveAPIKey(cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("answer generation: %w", err)
	}
	generator := openai.NewGenerator(openai.GeneratorConfig{
		APIKey:      apiKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.ChatModel,
		Temperature: cfg.GenerationTemperature,
		MaxTokens:   cfg.GenerationMaxTokens,
	})

	queryLogs := repository.NewQueryLogRepository(a.pool)
	a.answers = service.NewAnswerService(embedder, a.vectorIndex, a.chunkStore, generator, queryLogs, answerConfig(cfg), logger)
	a.chat = service.NewChatService(repository.NewChatRepository(a.pool), repository.NewTxRunner(a.pool), a.answers, cfg.HistoryLimit, logger)
	a.stats = service.NewStatsService(queryLogs)
	a.audit = service.NewAuditService(a.vectorIndex, a.chunkStore, 0, logger)

	return a, nil
}

func (a *app) newChunkStore(ctx context.Context) (service.ChunkStore, error) {
	switch a.cfg.ChunkStore {
	case config.ChunkStoreS3:
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        a.cfg.S3Endpoint,
			Region:          a.cfg.S3Region,
			AccessKeyID:     a.cfg.S3AccessKey,
			SecretAccessKey: a.cfg.S3SecretKey,
			Bucket:          a.cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		a.readiness["chunk_store"] = client
		a.logger.Info("using S3 chunk store", zap.String("bucket", a.cfg.S3Bucket), zap.String("prefix", a.cfg.S3Prefix))
		return storage.NewS3ChunkStore(client, a.cfg.S3Prefix, storage.WithStoreLogger(a.logger)), nil

	case config.ChunkStoreSQLite:
		store, err := storage.NewSQLiteChunkStore(a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite chunk store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.readiness["chunk_store"] = store
		a.logger.Info("using sqlite chunk store", zap.String("path", store.Path()))
		return store, nil

	default:
		return repository.NewChunkRepository(a.pool), nil
	}
}

func (a *app) newEmbedder() (service.Embedder, error) {
	if a.cfg.EmbeddingProvider == config.EmbeddingProviderLocal {
		embedder, err := onnx.NewEmbedder(onnx.Config{
			ModelName:  a.cfg.EmbeddingModel,
			ModelDir:   a.cfg.LocalModelDir,
			Dimensions: a.cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load local embedding model: %w", err)
		}
		a.closers = append(a.closers, embedder.Close)
		a.logger.Info("using local embedder", zap.Int("dimensions", embedder.Dimensions()))
		return embedder, nil
	}

	apiKey, err := openai.ResolveAPIKey(a.cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("embedding provider openai: %w", err)
	}
	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              apiKey,
		BaseURL:             a.cfg.OpenAIBaseURL,
		EmbeddingModel:      a.cfg.EmbeddingModel,
		EmbeddingDimensions: a.cfg.EmbeddingDimensions,
	})
	a.logger.Info("using OpenAI embedder", zap.Int("dimensions", client.Dimensions()))
	return client, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package service

import (
	"context"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/telemetry"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTopK                = 5
	DefaultMaxTopK             = 20
	DefaultSimilarityThreshold = 0.5
	DefaultContextTokenBudget  = 3000
	DefaultGroundingMinOverlap = 0.3
)

// Generator produces an answer for question from contextText under systemInstructions.
type Generator interface {
	Generate(ctx context.Context, systemInstructions, contextText, question string) (string, error)
}

// AnswerConfig is the explicit configuration of the answer pipeline.
type AnswerConfig struct {
	DefaultTopK         int
	MaxTopK             int
	SimilarityThreshold float64
	ContextTokenBudget  int
	CitationOverhead    int
	GroundingMinOverlap float64

	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	FetchTimeout    time.Duration
	GenerateTimeout time.Duration
}

// DefaultAnswerConfig returns the pipeline defaults.
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		DefaultTopK:         DefaultTopK,
		MaxTopK:             DefaultMaxTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		ContextTokenBudget:  DefaultContextTokenBudget,
		CitationOverhead:    DefaultCitationOverhead,
		GroundingMinOverlap: DefaultGroundingMinOverlap,
		EmbedTimeout:        10 * time.Second,
		SearchTimeout:       5 * time.Second,
		FetchTimeout:        5 * time.Second,
		GenerateTimeout:     30 * time.Second,
	}
}

func (c AnswerConfig) retrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		MaxTopK:       c.MaxTopK,
		EmbedTimeout:  c.EmbedTimeout,
		SearchTimeout: c.SearchTimeout,
		FetchTimeout:  c.FetchTimeout,
	}
}

// AnswerRequest is one question with optional per-call overrides.
type AnswerRequest struct {
	Question  string   `json:"question" validate:"notblank,max=4000"`
	TopK      *int     `json:"top_k,omitempty" validate:"omitempty,min=1"`
	Threshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// SearchResult is a ranked retrieval with no generated answer.
type SearchResult struct {
	QueryID    string
	Candidates []domain.RetrievalCandidate
	Duration   time.Duration
}

// AnswerService runs retrieve, gate, assemble and generate for one question.
type AnswerService struct {
	retriever *Retriever
	assembler *ContextAssembler
	generator Generator
	queryLog  QueryLogRepository
	cfg       AnswerConfig
	logger    *zap.Logger
}

// NewAnswerService wires the pipeline. queryLog may be nil.
func NewAnswerService(embedder Embedder, index VectorIndex, store ChunkStore, generator Generator, queryLog QueryLogRepository, cfg AnswerConfig, logger *zap.Logger) *AnswerService {
	logger = logging.OrNop(logger)
	if cfg.MaxTopK < 1 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = DefaultTopK
	}
	return &AnswerService{
		retriever: NewRetriever(embedder, index, store, cfg.retrieverConfig(), logger),
		assembler: NewContextAssembler(EstimateTokenCounter{}, cfg.CitationOverhead),
		generator: generator,
		queryLog:  queryLog,
		cfg:       cfg,
		logger:    logger,
	}
}

// Config returns the pipeline configuration.
func (s *AnswerService) Config() AnswerConfig {
	return s.cfg
}

// Query resolves req against the configured defaults and validates it.
func (s *AnswerService) Query(req AnswerRequest) (domain.Query, error) {
	if err := validation.Struct(req); err != nil {
		return domain.Query{}, err
	}

	q := domain.Query{
		QuestionText:        req.Question,
		TopK:                s.cfg.DefaultTopK,
		SimilarityThreshold: s.cfg.SimilarityThreshold,
	}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}
	if req.Threshold != nil {
		q.SimilarityThreshold = *req.Threshold
	}

	if err := q.Validate(s.cfg.MaxTopK); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// Answer returns a GroundedAnswer or a Refusal. Dependency failures come back as the error
// and are never folded into a refusal. The generator is only called after the gate accepts.
func (s *AnswerService) Answer(ctx context.Context, req AnswerRequest) (domain.AnswerResult, error) {
	start := time.Now()

	q, err := s.Query(req)
	if err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanAnswer, telemetry.SpanAttributes{QueryID: queryID, TopK: q.TopK})
	defer span.End()

	logger := s.logger.With(zap.String("query_id", queryID))

	candidates, err := s.retriever.Retrieve(ctx, q.QuestionText, q.TopK)
	if err != nil {
		span.SetError(err)
		logger.Error("retrieval failed", zap.String("dependency", string(domain.DependencyOf(err))), zap.Error(err))
		return nil, err
	}

	meta := domain.AnswerMeta{
		QueryID:   queryID,
		Retrieved: candidates,
	}
	if len(candidates) > 0 {
		meta.BestScore = candidates[0].Score
	}

	decision := Decide(candidates, q.SimilarityThreshold)
	if !decision.IsAccept() {
		return s.refuse(ctx, logger, q, decision.Reason(), meta, start), nil
	}

	bundle := s.assembler.Assemble(decision.Candidates(), s.cfg.ContextTokenBudget)
	if bundle.Empty() {
		return s.refuse(ctx, logger, q, domain.RefusalContextTooLarge, meta, start), nil
	}

	contextText := BuildContext(bundle)
	answer, err := s.generate(ctx, contextText, q.QuestionText)
	if err != nil {
		span.SetError(err)
		logger.Error("generation failed", zap.Error(err))
		return nil, err
	}

	if !IsGrounded(answer, contextText, s.cfg.GroundingMinOverlap) {
		logger.Warn("generated answer failed grounding check",
			zap.Float64("overlap", GroundingOverlap(answer, contextText)),
		)
		return s.refuse(ctx, logger, q, domain.RefusalUngroundedAnswer, meta, start), nil
	}

	meta.Duration = time.Since(start)
	result := &domain.GroundedAnswer{
		AnswerMeta: meta,
		Answer:     answer,
		Citations:  bundle.Citations,
		Bundle:     bundle,
	}

	logger.Info("answered",
		zap.Int("fragments", len(bundle.Fragments)),
		zap.Int("tokens_used", bundle.TokenBudgetUsed),
		zap.Float64("best_score", meta.BestScore),
		zap.Duration("duration", meta.Duration),
	)
	s.record(ctx, logger, q, result)
	return result, nil
}

// Search returns the ranked candidates for req without gating or generation. The threshold
// override, when present, only filters the returned candidates.
func (s *AnswerService) Search(ctx context.Context, req AnswerRequest) (*SearchResult, error) {
	start := time.Now()

	q, err := s.Query(req)
	if err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSearch, telemetry.SpanAttributes{QueryID: queryID, TopK: q.TopK})
	defer span.End()

	candidates, err := s.retriever.Retrieve(ctx, q.QuestionText, q.TopK)
	if err != nil {
		span.SetError(err)
		s.logger.Error("search failed",
			zap.String("query_id", queryID),
			zap.String("dependency", string(domain.DependencyOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	if req.Threshold != nil {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Score >= q.SimilarityThreshold {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	return &SearchResult{
		QueryID:    queryID,
		Candidates: candidates,
		Duration:   time.Since(start),
	}, nil
}

func (s *AnswerService) generate(ctx context.Context, contextText, question string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanGenerate, telemetry.SpanAttributes{Dependency: string(domain.DependencyGenerator)})
	defer span.End()

	ctx, cancel := withTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	answer, err := s.generator.Generate(ctx, SystemInstructions, contextText, question)
	if err != nil {
		return "", domain.NewDependencyError(domain.DependencyGenerator, err)
	}
	if err := ctx.Err(); err != nil {
		return "", domain.NewDependencyError(domain.DependencyGenerator, err)
	}
	return answer, nil
}

func (s *AnswerService) refuse(ctx context.Context, logger *zap.Logger, q domain.Query, reason domain.RefusalReason, meta domain.AnswerMeta, start time.Time) *domain.Refusal {
	meta.Duration = time.Since(start)
	refusal := domain.NewRefusal(reason, meta)

	logger.Info("refused",
		zap.String("reason", string(reason)),
		zap.Int("candidates", len(meta.Retrieved)),
		zap.Float64("best_score", meta.BestScore),
	)
	s.record(ctx, logger, q, refusal)
	return refusal
}

// record writes the query log entry. Failures are logged and never reach the caller.
func (s *AnswerService) record(ctx context.Context, logger *zap.Logger, q domain.Query, result domain.AnswerResult) {
	if s.queryLog == nil {
		return
	}

	meta := result.Meta()
	entry := QueryLogEntry{
		ID:          meta.QueryID,
		Question:    q.QuestionText,
		TopK:        q.TopK,
		Threshold:   q.SimilarityThreshold,
		ResultCount: len(meta.Retrieved),
		BestScore:   meta.BestScore,
		DurationMs:  meta.Duration.Milliseconds(),
	}
	if refusal, ok := result.(*domain.Refusal); ok {
		entry.Refused = true
		entry.Reason = string(refusal.Reason)
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.queryLog.CreateQueryLog(logCtx, entry); err != nil {
		logger.Warn("failed to write query log", zap.Error(err))
	}
}

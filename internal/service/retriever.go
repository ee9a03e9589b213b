package service

import (
	"context"
	"errors"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/telemetry"
	"go.uber.org/zap"
)

// Embedder turns question text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex returns nearest chunk ids by descending similarity.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, k int) ([]domain.VectorHit, error)
}

// ChunkStore hydrates chunk ids. Ids it does not know are omitted from the result.
type ChunkStore interface {
	Fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error)
}

// RetrieverConfig bounds a retrieval.
type RetrieverConfig struct {
	MaxTopK       int
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	FetchTimeout  time.Duration
}

// Retriever embeds a question, searches the index and hydrates the hits into ranked candidates.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	store    ChunkStore
	cfg      RetrieverConfig
	logger   *zap.Logger
}

func NewRetriever(embedder Embedder, index VectorIndex, store ChunkStore, cfg RetrieverConfig, logger *zap.Logger) *Retriever {
	if cfg.MaxTopK < 1 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}
}

// Retrieve returns at most topK candidates with unique chunk ids, ranked deterministically.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievalCandidate, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRetrieve, telemetry.SpanAttributes{TopK: topK})
	defer span.End()

	k := domain.ClampTopK(topK, r.cfg.MaxTopK)

	vector, err := r.embed(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits, err := r.search(ctx, vector, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits = dedupeHits(hits)
	if len(hits) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}

	chunks, err := r.fetch(ctx, ids)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	candidates := make([]domain.RetrievalCandidate, 0, len(hits))
	for _, h := range hits {
		chunk, ok := chunks[h.ChunkID]
		if !ok {
			r.logger.Warn("indexed chunk missing from store", zap.String("chunk_id", h.ChunkID))
			continue
		}
		candidates = append(candidates, domain.RetrievalCandidate{
			Chunk: chunk,
			Score: domain.ClampScore(h.Score),
		})
	}

	domain.RankCandidates(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	span.SetData("hits", len(hits))
	span.SetData("candidates", len(candidates))
	return candidates, nil
}

func (r *Retriever) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEmbed, telemetry.SpanAttributes{Dependency: string(domain.DependencyEmbedder)})
	defer span.End()

	ctx, cancel := withTimeout(ctx, r.cfg.EmbedTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		// embedding input errors are not outages
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.NewDependencyError(domain.DependencyEmbedder, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyEmbedder, err)
	}
	return vector, nil
}

func (r *Retriever) search(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSearch, telemetry.SpanAttributes{Dependency: string(domain.DependencyVectorIndex), TopK: k})
	defer span.End()

	ctx, cancel := withTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()

	hits, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, domain.NewDependencyError(domain.DependencyVectorIndex, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyVectorIndex, err)
	}
	return hits, nil
}

func (r *Retriever) fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFetch, telemetry.SpanAttributes{Dependency: string(domain.DependencyChunkStore)})
	defer span.End()

	ctx, cancel := withTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	chunks, err := r.store.Fetch(ctx, ids)
	if err != nil {
		return nil, domain.NewDependencyError(domain.DependencyChunkStore, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewDependencyError(domain.DependencyChunkStore, err)
	}
	return chunks, nil
}

// dedupeHits keeps the highest score per chunk id, preserving first-seen order.
func dedupeHits(hits []domain.VectorHit) []domain.VectorHit {
	index := make(map[string]int, len(hits))
	out := make([]domain.VectorHit, 0, len(hits))
	for _, h := range hits {
		if h.ChunkID == "" {
			continue
		}
		if i, ok := index[h.ChunkID]; ok {
			if h.Score > out[i].Score {
				out[i].Score = h.Score
			}
			continue
		}
		index[h.ChunkID] = len(out)
		out = append(out, h)
	}
	return out
}

// withTimeout derives the per-call context. A call that returns after its context is done
// is treated as failed, so late results never reach the caller.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

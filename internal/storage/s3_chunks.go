package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 8

// ObjectStore is the subset of S3Client the chunk store needs.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// chunkObject is the JSON layout of one chunk object.
type chunkObject struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourcePath string `json:"source_path"`
	Heading    string `json:"heading"`
	ChunkIndex int    `json:"chunk_index"`
}

// S3ChunkStore keeps each chunk as a JSON object at <prefix><id>.json.
type S3ChunkStore struct {
	objects     ObjectStore
	prefix      string
	concurrency int
	logger      *zap.Logger
}

type S3ChunkStoreOption func(*S3ChunkStore)

// WithStoreLogger sets the logger used to report unreadable chunk objects.
func WithStoreLogger(logger *zap.Logger) S3ChunkStoreOption {
	return func(s *S3ChunkStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewS3ChunkStore(objects ObjectStore, prefix string, opts ...S3ChunkStoreOption) *S3ChunkStore {
	s := &S3ChunkStore{
		objects:     objects,
		prefix:      prefix,
		concurrency: defaultFetchConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the object key for a chunk id.
func (s *S3ChunkStore) Key(id string) string {
	return path.Join(s.prefix, id+".json")
}

// Fetch loads the chunk objects for ids in parallel. Missing objects are omitted, and so are
// objects that do not decode; only transport failures fail the fetch.
func (s *S3ChunkStore) Fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	result := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			data, err := s.objects.GetObject(gctx, s.Key(id))
			if err != nil {
				if errors.Is(err, ErrObjectNotFound) {
					return nil
				}
				return err
			}

			var obj chunkObject
			if err := json.Unmarshal(data, &obj); err != nil {
				s.logger.Warn("skipping unreadable chunk object",
					zap.String("chunk_id", id),
					zap.String("key", s.Key(id)),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			result[id] = domain.Chunk{
				ID:         id,
				Text:       obj.Text,
				SourcePath: obj.SourcePath,
				Heading:    obj.Heading,
				ChunkIndex: obj.ChunkIndex,
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Put writes a chunk object.
func (s *S3ChunkStore) Put(ctx context.Context, c domain.Chunk) error {
	data, err := json.Marshal(chunkObject{
		ID:         c.ID,
		Text:       c.Text,
		SourcePath: c.SourcePath,
		Heading:    c.Heading,
		ChunkIndex: c.ChunkIndex,
	})
	if err != nil {
		return err
	}
	return s.objects.PutObject(ctx, s.Key(c.ID), "application/json", data)
}

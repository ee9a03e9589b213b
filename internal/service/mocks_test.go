package service

import (
	"context"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Search(ctx context.Context, embedding []float32, k int) ([]domain.VectorHit, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VectorHit), args.Error(1)
}

func (m *MockVectorIndex) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Chunk), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, systemInstructions, contextText, question string) (string, error) {
	args := m.Called(ctx, systemInstructions, contextText, question)
	return args.String(0), args.Error(1)
}

type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) CreateQueryLog(ctx context.Context, entry QueryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQueryLogRepository) Stats(ctx context.Context, topReasons int) (*QueryStats, error) {
	args := m.Called(ctx, topReasons)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QueryStats), args.Error(1)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateSession(ctx context.Context, s *domain.ChatSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockChatRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) TouchSession(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockChatRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*MessagePageResult, error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessagePageResult), args.Error(1)
}

func (m *MockChatRepository) SessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionStats), args.Error(1)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, req AnswerRequest) (domain.AnswerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.AnswerResult), args.Error(1)
}

func chunk(id, path string, index int, text string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		Text:       text,
		SourcePath: path,
		Heading:    "Heading " + id,
		ChunkIndex: index,
	}
}

func chunkMap(chunks ...domain.Chunk) map[string]domain.Chunk {
	m := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		m[c.ID] = c
	}
	return m
}

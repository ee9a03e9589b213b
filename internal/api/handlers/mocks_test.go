package handlers

import (
	"context"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, req service.AnswerRequest) (domain.AnswerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.AnswerResult), args.Error(1)
}

func (m *MockAnswerService) Search(ctx context.Context, req service.AnswerRequest) (*service.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (*service.QueryStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryStats), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResult), args.Error(1)
}

func (m *MockChatService) Session(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionStats), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, sessionID, cursor string, limit int) (*service.MessagePageResult, error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MessagePageResult), args.Error(1)
}

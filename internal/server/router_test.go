package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/middleware"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/stretchr/testify/assert"
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

type stubStats struct{}

func (stubStats) Stats(ctx context.Context) (*service.QueryStats, error) {
	return &service.QueryStats{RefusalReasons: []service.ReasonCount{}}, nil
}

type stubChat struct{}

func (stubChat) Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error) {
	return nil, domain.ErrEmptyQuestion
}

func (stubChat) Session(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	return nil, domain.ErrSessionNotFound
}

func (stubChat) History(ctx context.Context, sessionID, cursor string, limit int) (*service.MessagePageResult, error) {
	return &service.MessagePageResult{}, nil
}

func newTestRouter(answers handlers.AnswerService, limiter *middleware.RateLimiter) http.Handler {
	return NewRouter(testRouterConfig(answers, limiter))
}

func testRouterConfig(answers handlers.AnswerService, limiter *middleware.RateLimiter) RouterConfig {
	return RouterConfig{
		RAGHandler:    handlers.NewRAGHandler(answers, stubStats{}),
		ChatHandler:   handlers.NewChatHandler(stubChat{}),
		HealthHandler: handlers.NewHealthHandler(nil, nil),
		RateLimiter:   limiter,
		CORSOrigins:   []string{"https://book.example.com"},
	}
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockAnswerService), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Query(t *testing.T) {
	answers := new(MockAnswerService)
	answers.On("Answer", mock.Anything, mock.Anything).
		Return(domain.NewRefusal(domain.RefusalEmptyResults, domain.AnswerMeta{QueryID: "q"}), nil)
	router := newTestRouter(answers, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question":"q"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refused":true`)
	answers.AssertExpectations(t)
}

func TestRouter_Search(t *testing.T) {
	answers := new(MockAnswerService)
	answers.On("Search", mock.Anything, mock.Anything).
		Return(&service.SearchResult{QueryID: "s", Candidates: []domain.RetrievalCandidate{}}, nil)
	router := newTestRouter(answers, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag/search", strings.NewReader(`{"question":"q"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
	answers.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
}

func TestRouter_RoutesRegistered(t *testing.T) {
	router := newTestRouter(new(MockAnswerService), nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/rag/stats", http.StatusOK},
		{http.MethodPost, "/v1/chat", http.StatusBadRequest},
		{http.MethodGet, "/v1/sessions/abc", http.StatusNotFound},
		{http.MethodGet, "/v1/sessions/abc/history", http.StatusOK},
		{http.MethodGet, "/rag/query", http.StatusMethodNotAllowed},
		{http.MethodGet, "/rag/search", http.StatusMethodNotAllowed},
		{http.MethodGet, "/knowledge", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			body := strings.NewReader(`{"message":"x"}`)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, body))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(new(MockAnswerService), nil)

	req := httptest.NewRequest(http.MethodOptions, "/rag/query", nil)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://book.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimitAppliesToAPIOnly(t *testing.T) {
	answers := new(MockAnswerService)
	answers.On("Answer", mock.Anything, mock.Anything).
		Return(domain.NewRefusal(domain.RefusalEmptyResults, domain.AnswerMeta{}), nil)
	router := newTestRouter(answers, middleware.NewRateLimiter(0.001, 1))

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(`{"question":"q"}`))
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/rag/query"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/rag/query"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/health"))
}

func TestRouter_RateLimitByForwardedClient(t *testing.T) {
	answers := new(MockAnswerService)
	answers.On("Answer", mock.Anything, mock.Anything).
		Return(domain.NewRefusal(domain.RefusalEmptyResults, domain.AnswerMeta{}), nil)

	send := func(router http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question":"q"}`))
		req.RemoteAddr = "10.0.0.2:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("direct", func(t *testing.T) {
		router := newTestRouter(answers, middleware.NewRateLimiter(0.001, 1))
		assert.Equal(t, http.StatusOK, send(router, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(router, "198.51.100.2"))
	})

	t.Run("behind trusted proxy", func(t *testing.T) {
		cfg := testRouterConfig(answers, middleware.NewRateLimiter(0.001, 1))
		cfg.TrustedProxy = true
		router := NewRouter(cfg)
		assert.Equal(t, http.StatusOK, send(router, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, send(router, "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(router, "198.51.100.1"))
	})
}

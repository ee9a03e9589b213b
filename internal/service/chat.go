package service

import (
	"context"
	"errors"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/pagination"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/telemetry"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 50

// ChatRepositoryInterface defines persistence for chat sessions and messages
type ChatRepositoryInterface interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	AppendMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*MessagePageResult, error)
	SessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error)
}

type MessagePageResult struct {
	Items      []*domain.ChatMessage
	NextCursor string
	HasMore    bool
}

// Answerer is the answer pipeline as seen by callers that add behaviour around it.
type Answerer interface {
	Answer(ctx context.Context, req AnswerRequest) (domain.AnswerResult, error)
}

type ChatRequest struct {
	Message   string   `json:"message" validate:"notblank,max=4000"`
	SessionID string   `json:"session_id,omitempty" validate:"omitempty,uuid"`
	TopK      *int     `json:"top_k,omitempty" validate:"omitempty,min=1"`
	Threshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type ChatResult struct {
	SessionID string
	Result    domain.AnswerResult
}

// ChatService records conversations around the answer pipeline.
type ChatService struct {
	repo         ChatRepositoryInterface
	txRunner     TxRunner
	answerer     Answerer
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

func NewChatService(repo ChatRepositoryInterface, txRunner TxRunner, answerer Answerer, historyLimit int, logger *zap.Logger) *ChatService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ChatService{
		repo:         repo,
		txRunner:     txRunner,
		answerer:     answerer,
		historyLimit: historyLimit,
		logger:       logging.OrNop(logger),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Chat answers req.Message and appends both turns to the session in one transaction.
// An unknown or absent session id starts a new session. Nothing is written when the
// answer pipeline returns an error.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanChat, telemetry.SpanAttributes{SessionID: req.SessionID})
	defer span.End()

	askedAt := s.now()
	result, err := s.answerer.Answer(ctx, AnswerRequest{
		Question:  req.Message,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answeredAt := s.now()
	if !answeredAt.After(askedAt) {
		answeredAt = askedAt.Add(time.Microsecond)
	}

	var sessionID string
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		chat := repos.Chat()

		session, err := s.resolveSession(ctx, chat, req.SessionID, askedAt)
		if err != nil {
			return err
		}
		sessionID = session.ID

		if err := chat.AppendMessage(ctx, &domain.ChatMessage{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Role:      domain.MessageRoleUser,
			Content:   req.Message,
			CreatedAt: askedAt,
		}); err != nil {
			return err
		}

		if err := chat.AppendMessage(ctx, assistantMessage(session.ID, result, answeredAt)); err != nil {
			return err
		}

		return chat.TouchSession(ctx, session.ID, answeredAt)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.Info("chat turn stored",
		zap.String("session_id", sessionID),
		zap.String("query_id", result.Meta().QueryID),
	)
	return &ChatResult{SessionID: sessionID, Result: result}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, chat ChatRepositoryInterface, id string, at time.Time) (*domain.ChatSession, error) {
	if id != "" {
		session, err := chat.GetSession(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		s.logger.Info("unknown chat session, starting a new one", zap.String("requested_session_id", id))
	}

	session := &domain.ChatSession{
		ID:        uuid.NewString(),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := chat.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func assistantMessage(sessionID string, result domain.AnswerResult, at time.Time) *domain.ChatMessage {
	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.MessageRoleAssistant,
		CreatedAt: at,
	}
	switch r := result.(type) {
	case *domain.GroundedAnswer:
		msg.Content = r.Answer
		msg.Citations = r.Citations
	case *domain.Refusal:
		msg.Content = r.Message
		msg.Refused = true
	}
	return msg
}

// Session returns stats for an existing session.
func (s *ChatService) Session(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, domain.ErrInvalidSessionID
	}
	return s.repo.SessionStats(ctx, sessionID)
}

// History returns a page of a session's messages, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID, cursor string, limit int) (*MessagePageResult, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, domain.ErrInvalidSessionID
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	return s.repo.ListMessages(ctx, sessionID, decoded, limit)
}

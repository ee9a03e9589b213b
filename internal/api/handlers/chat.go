package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatService interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error)
	Session(ctx context.Context, sessionID string) (*domain.SessionStats, error)
	History(ctx context.Context, sessionID, cursor string, limit int) (*service.MessagePageResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	*api.AnswerResponse
}

type SessionResponse struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
}

type MessageResponse struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Citations []domain.Citation `json:"citations"`
	Refused   bool              `json:"refused"`
	CreatedAt string            `json:"created_at"`
}

type HistoryResponse struct {
	Messages   []*MessageResponse `json:"messages"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

func messageToResponse(m *domain.ChatMessage) *MessageResponse {
	citations := m.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return &MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Citations: citations,
		Refused:   m.Refused,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w)
		return
	}

	res, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, &ChatResponse{
		SessionID:      res.SessionID,
		AnswerResponse: api.NewAnswerResponse(res.Result, true),
	})
}

func (h *ChatHandler) Session(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &SessionResponse{
		SessionID:    stats.SessionID,
		MessageCount: stats.MessageCount,
		CreatedAt:    stats.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastActivity: stats.LastActivity.UTC().Format(time.RFC3339Nano),
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.JSON(w, http.StatusBadRequest, api.ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  domain.ErrCodeValidation,
			})
			return
		}
		limit = parsed
	}

	page, err := h.svc.History(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &HistoryResponse{
		Messages:   make([]*MessageResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, m := range page.Items {
		resp.Messages = append(resp.Messages, messageToResponse(m))
	}
	api.Success(w, http.StatusOK, resp)
}

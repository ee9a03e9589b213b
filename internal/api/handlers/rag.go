package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, req service.AnswerRequest) (domain.AnswerResult, error)
	Search(ctx context.Context, req service.AnswerRequest) (*service.SearchResult, error)
}

type StatsService interface {
	Stats(ctx context.Context) (*service.QueryStats, error)
}

type RAGHandler struct {
	answers AnswerService
	stats   StatsService
}

func NewRAGHandler(answers AnswerService, stats StatsService) *RAGHandler {
	return &RAGHandler{answers: answers, stats: stats}
}

type QueryRequest struct {
	Question            string   `json:"question"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	IncludeCitations    *bool    `json:"include_citations,omitempty"`
}

// SearchRequest is the body of POST /rag/search.
type SearchRequest struct {
	Question            string   `json:"question"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

type StatsResponse struct {
	TotalQueriesProcessed    int64            `json:"total_queries_processed"`
	AverageResponseTimeMs    float64          `json:"average_response_time_ms"`
	AverageChunksRetrieved   float64          `json:"average_chunks_retrieved"`
	RefusalRate              float64          `json:"refusal_rate"`
	MostCommonRefusalReasons []string         `json:"most_common_refusal_reasons"`
	RefusalReasonCounts      map[string]int64 `json:"refusal_reason_counts"`
}

func statsToResponse(s *service.QueryStats) *StatsResponse {
	resp := &StatsResponse{
		TotalQueriesProcessed:    s.TotalQueries,
		AverageResponseTimeMs:    s.AverageResponseTimeMs,
		AverageChunksRetrieved:   s.AverageChunksRetrieved,
		RefusalRate:              s.RefusalRate,
		MostCommonRefusalReasons: make([]string, 0, len(s.RefusalReasons)),
		RefusalReasonCounts:      make(map[string]int64, len(s.RefusalReasons)),
	}
	for _, rc := range s.RefusalReasons {
		resp.MostCommonRefusalReasons = append(resp.MostCommonRefusalReasons, rc.Reason)
		resp.RefusalReasonCounts[rc.Reason] = rc.Count
	}
	return resp
}

// Query answers one question. Refusals are 200 responses; dependency failures are 503.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w)
		return
	}

	result, err := h.answers.Answer(r.Context(), service.AnswerRequest{
		Question:  req.Question,
		TopK:      req.TopK,
		Threshold: req.SimilarityThreshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	includeCitations := req.IncludeCitations == nil || *req.IncludeCitations
	api.JSON(w, http.StatusOK, api.NewAnswerResponse(result, includeCitations))
}

// Search returns ranked book chunks for a question without generating an answer.
func (h *RAGHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w)
		return
	}

	result, err := h.answers.Search(r.Context(), service.AnswerRequest{
		Question:  req.Question,
		TopK:      req.TopK,
		Threshold: req.SimilarityThreshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, api.NewSearchResponse(result.QueryID, result.Candidates, result.Duration.Milliseconds()))
}

func (h *RAGHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, statsToResponse(stats))
}

func invalidBody(w http.ResponseWriter) {
	api.JSON(w, http.StatusBadRequest, api.ErrorResponse{
		Error: "invalid request body",
		Code:  domain.ErrCodeValidation,
	})
}

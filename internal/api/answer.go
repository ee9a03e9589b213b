package api

import (
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
)

// previewRunes bounds the chunk text echoed back with each retrieved chunk.
const previewRunes = 200

// RetrievedChunk describes one ranked candidate in an answer response.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	SourcePath string  `json:"source_path"`
	Heading    string  `json:"heading"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Preview    string  `json:"preview,omitempty"`
}

// AnswerResponse is the wire shape of both a grounded answer and a refusal.
// Answer is null for refusals.
type AnswerResponse struct {
	QueryID          string            `json:"query_id"`
	Answer           *string           `json:"answer"`
	Citations        []domain.Citation `json:"citations"`
	Refused          bool              `json:"refused"`
	Reason           string            `json:"reason,omitempty"`
	Message          string            `json:"message,omitempty"`
	RetrievedChunks  []RetrievedChunk  `json:"retrieved_chunks"`
	ConfidenceScore  float64           `json:"confidence_score"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// NewAnswerResponse converts an answer result for the wire. Citations are dropped when
// includeCitations is false.
func NewAnswerResponse(result domain.AnswerResult, includeCitations bool) *AnswerResponse {
	meta := result.Meta()
	resp := &AnswerResponse{
		QueryID:          meta.QueryID,
		Citations:        []domain.Citation{},
		RetrievedChunks:  retrievedChunks(meta.Retrieved),
		ConfidenceScore:  meta.BestScore,
		ProcessingTimeMs: meta.Duration.Milliseconds(),
	}

	switch r := result.(type) {
	case *domain.GroundedAnswer:
		answer := r.Answer
		resp.Answer = &answer
		if includeCitations && len(r.Citations) > 0 {
			resp.Citations = r.Citations
		}
	case *domain.Refusal:
		resp.Refused = true
		resp.Reason = string(r.Reason)
		resp.Message = r.Message
	}
	return resp
}

func retrievedChunks(candidates []domain.RetrievalCandidate) []RetrievedChunk {
	out := make([]RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, RetrievedChunk{
			ChunkID:    c.Chunk.ID,
			SourcePath: c.Chunk.SourcePath,
			Heading:    c.Chunk.Heading,
			ChunkIndex: c.Chunk.ChunkIndex,
			Score:      c.Score,
			Rank:       c.Rank,
			Preview:    preview(c.Chunk.Text),
		})
	}
	return out
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

// SearchHit is one ranked chunk returned by a search, with its full text.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	SourcePath string  `json:"source_path"`
	Heading    string  `json:"heading"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// SearchResponse is the wire shape of POST /rag/search.
type SearchResponse struct {
	QueryID          string      `json:"query_id"`
	Results          []SearchHit `json:"results"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
}

func NewSearchResponse(queryID string, candidates []domain.RetrievalCandidate, elapsedMs int64) *SearchResponse {
	resp := &SearchResponse{
		QueryID:          queryID,
		Results:          make([]SearchHit, 0, len(candidates)),
		ProcessingTimeMs: elapsedMs,
	}
	for _, c := range candidates {
		resp.Results = append(resp.Results, SearchHit{
			ChunkID:    c.Chunk.ID,
			Text:       c.Chunk.Text,
			SourcePath: c.Chunk.SourcePath,
			Heading:    c.Chunk.Heading,
			ChunkIndex: c.Chunk.ChunkIndex,
			Score:      c.Score,
			Rank:       c.Rank,
		})
	}
	return resp
}

// Package mcp exposes the answer pipeline to MCP clients over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingAnswerer is returned when no answer service is provided.
var ErrMissingAnswerer = errors.New("mcp: answer service is required")

// Answerer answers one question.
type Answerer interface {
	Answer(ctx context.Context, req service.AnswerRequest) (domain.AnswerResult, error)
}

// AskInput is the input schema for the ask_book tool.
type AskInput struct {
	Question            string   `json:"question" jsonschema:"the question to answer from the book"`
	TopK                *int     `json:"top_k,omitempty" jsonschema:"number of fragments to retrieve"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" jsonschema:"minimum similarity in [0,1] required to answer"`
}

// Server is the MCP server for the book assistant.
type Server struct {
	answers Answerer
	logger  *zap.Logger
	server  *mcp.Server
}

func NewServer(answers Answerer, logger *zap.Logger) (*Server, error) {
	if answers == nil {
		return nil, ErrMissingAnswerer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		answers: answers,
		logger:  logger,
		server:  mcp.NewServer(&mcp.Implementation{Name: "bookrag", Version: Version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_book",
		Description: "Answer a question using only the book content, with citations. Refuses when the book does not cover the question.",
	}, s.handleAsk)

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, api.AnswerResponse, error) {
	result, err := s.answers.Answer(ctx, service.AnswerRequest{
		Question:  input.Question,
		TopK:      input.TopK,
		Threshold: input.SimilarityThreshold,
	})
	if err != nil {
		if dep := domain.DependencyOf(err); dep != "" {
			s.logger.Warn("ask_book dependency failure", zap.String("dependency", string(dep)), zap.Error(err))
			return nil, api.AnswerResponse{}, fmt.Errorf("%s unavailable, try again later", dep)
		}
		return nil, api.AnswerResponse{}, err
	}
	return nil, *api.NewAnswerResponse(result, true), nil
}

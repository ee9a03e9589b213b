package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultChatModel   = openai.GPT3Dot5Turbo
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

var errNoChoices = errors.New("no completion choices returned")

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GeneratorConfig configures the chat completion generator
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator produces answers with the chat completions API.
type Generator struct {
	api         ChatAPI
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a chat completion generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{
		api:         newAPIClient(cfg.APIKey, cfg.BaseURL),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// Generate answers question from contextText under the given system instructions.
func (g *Generator) Generate(ctx context.Context, systemInstructions, contextText, question string) (string, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstructions},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(contextText, question)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", domain.NewDependencyError(domain.DependencyGenerator, fmt.Errorf("failed to create chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewDependencyError(domain.DependencyGenerator, errNoChoices)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func userMessage(contextText, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer using only the context above.")
	return b.String()
}

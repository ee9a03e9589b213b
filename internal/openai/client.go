package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for query embeddings. It must match the
	// model used when the book chunks were ingested.
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrNoAPIKey is returned when no OpenAI API key is configured
	ErrNoAPIKey = errors.New("OpenAI API key not set (BOOKRAG_OPENAI_API_KEY or OPENAI_API_KEY)")
	// errNoEmbeddingData is returned when the API answers without vectors
	errNoEmbeddingData = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client generates query embeddings through the OpenAI API
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: client,
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errNoEmbeddingData
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// newAPIClient builds the underlying go-openai client, honouring a custom base URL.
func newAPIClient(apiKey, baseURL string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(clientCfg)
}

// ResolveAPIKey returns configured, falling back to the OPENAI_API_KEY environment variable.
func ResolveAPIKey(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		return apiKey, nil
	}
	return "", ErrNoAPIKey
}

// NewClient creates a new embedding client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new embedding client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewOpenAIAdapter(newAPIClient(cfg.APIKey, cfg.BaseURL), openai.EmbeddingModel(cfg.EmbeddingModel)),
		dimensions: dimensions,
	}
}

// Embed implements the query embedder used by the retriever.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.GenerateEmbedding(ctx, text)
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyEmbeddingInput
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		if errors.Is(err, errNoEmbeddingData) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to create embedding", err)
		}
		return nil, domain.NewDependencyError(domain.DependencyEmbedder, fmt.Errorf("failed to create embedding: %w", err))
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, fmt.Errorf("got %d dimensions, expected %d: %w", len(embedding), expected, domain.ErrEmbeddingDimensions)
	}

	return embedding, nil
}

// Dimensions returns the embedding size this client enforces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "BOOKRAG_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the API URL with the cascade flag → env → config.toml → default.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var baseURL string
	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		cfg, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		baseURL = cfg.APIURL
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(baseURL), nil
}

// NewAPIClientWithConfig creates an APIClient for baseURL.
func NewAPIClientWithConfig(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Dependency string
	Message    string
}

func (e *APIError) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("API error (%d): %s unavailable", e.StatusCode, e.Dependency)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsDependencyFailure reports whether the server could not reach one of its backends.
func (e *APIError) IsDependencyFailure() bool {
	return e.StatusCode == http.StatusServiceUnavailable && e.Dependency != ""
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Ask posts a question to /rag/query.
func (c *APIClient) Ask(ctx context.Context, req handlers.QueryRequest) (*api.AnswerResponse, error) {
	var out api.AnswerResponse
	if err := c.do(ctx, http.MethodPost, "/rag/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search retrieves ranked book chunks without generating an answer.
func (c *APIClient) Search(ctx context.Context, req handlers.SearchRequest) (*api.SearchResponse, error) {
	var out api.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/rag/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatRequest is the body of POST /v1/chat. An empty SessionID starts a new session.
type ChatRequest struct {
	Message   string   `json:"message"`
	SessionID string   `json:"session_id,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
	Threshold *float64 `json:"similarity_threshold,omitempty"`
}

// Chat sends one message in a session.
func (c *APIClient) Chat(ctx context.Context, req ChatRequest) (*handlers.ChatResponse, error) {
	var out handlers.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session fetches session statistics.
func (c *APIClient) Session(ctx context.Context, sessionID string) (*handlers.SessionResponse, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, &env); err != nil {
		return nil, err
	}
	var out handlers.SessionResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &out, nil
}

// History fetches one page of a session's messages, oldest first.
func (c *APIClient) History(ctx context.Context, sessionID, cursor string, limit int) (*handlers.HistoryResponse, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var env envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	var out handlers.HistoryResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return &out, nil
}

// Stats fetches aggregate query statistics.
func (c *APIClient) Stats(ctx context.Context) (*handlers.StatsResponse, error) {
	var out handlers.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/rag/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Code = errResp.Code
			apiErr.Dependency = errResp.Dependency
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "3f2b8c1e-9d4a-4c1b-8e2f-1a2b3c4d5e6f"

// execute runs sub under a root carrying the persistent flags of the bookrag binary.
func execute(t *testing.T, serverURL, stdin string, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	t.Setenv(envAPIURL, "")

	root := &cobra.Command{Use: "bookrag", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "")
	root.PersistentFlags().String("api-url", "", "")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(append([]string{sub.Name()}, args...), "--api-url", serverURL))

	err := root.Execute()
	return out.String(), err
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const groundedBody = `{"query_id":"q1","answer":"Nodes communicate over topics.","citations":[{"source_path":"docs/ros2/topics.md","heading":"Topics","chunk_index":2}],"refused":false,"retrieved_chunks":[{"chunk_id":"c1","source_path":"docs/ros2/topics.md","heading":"Topics","chunk_index":2,"score":0.81,"rank":0,"preview":"A topic is a named bus"}],"confidence_score":0.81,"processing_time_ms":95}`

const refusalBody = `{"query_id":"q2","answer":null,"citations":[],"refused":true,"reason":"BELOW_THRESHOLD","message":"The book does not cover this topic.","retrieved_chunks":[],"confidence_score":0.2,"processing_time_ms":40}`

func TestAskCmd_Grounded(t *testing.T) {
	useTempConfig(t)

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, groundedBody)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", AskCmd(), "how", "do", "nodes", "talk?", "--show-chunks", "--top-k", "4")
	require.NoError(t, err)

	assert.Equal(t, "how do nodes talk?", got["question"])
	assert.Equal(t, float64(4), got["top_k"])
	assert.Equal(t, true, got["include_citations"])
	_, hasThreshold := got["similarity_threshold"]
	assert.False(t, hasThreshold)

	assert.Contains(t, out, "Nodes communicate over topics.")
	assert.Contains(t, out, "docs/ros2/topics.md § Topics (chunk 2)")
	assert.Contains(t, out, "A topic is a named bus")
}

func TestAskCmd_UsesConfigDefaults(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{TopK: 6, SimilarityThreshold: 0.4}))

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, groundedBody)
	}))
	defer server.Close()

	_, err := execute(t, server.URL, "", AskCmd(), "q", "--threshold", "0.7", "--no-citations")
	require.NoError(t, err)
	assert.Equal(t, float64(6), got["top_k"])
	assert.Equal(t, 0.7, got["similarity_threshold"])
	assert.Equal(t, false, got["include_citations"])
}

func TestAskCmd_Refusal(t *testing.T) {
	useTempConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, refusalBody)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", AskCmd(), "what is the capital of France?")
	require.NoError(t, err)
	assert.Contains(t, out, "Refused (BELOW_THRESHOLD)")
	assert.Contains(t, out, "The book does not cover this topic.")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	useTempConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, refusalBody)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", AskCmd(), "q", "--output")
	require.NoError(t, err)

	var resp api.AnswerResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Refused)
	assert.Nil(t, resp.Answer)
}

func TestAskCmd_InvalidFlags(t *testing.T) {
	useTempConfig(t)

	_, err := execute(t, "http://unused", "", AskCmd(), "q", "--top-k", "0")
	assert.ErrorContains(t, err, "--top-k")

	_, err = execute(t, "http://unused", "", AskCmd(), "q", "--threshold", "2")
	assert.ErrorContains(t, err, "--threshold")
}

func TestAskCmd_DependencyFailure(t *testing.T) {
	useTempConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":"generator unavailable","code":"DEPENDENCY_UNAVAILABLE","dependency":"generator"}`)
	}))
	defer server.Close()

	_, err := execute(t, server.URL, "", AskCmd(), "q")
	require.Error(t, err)

	var buf bytes.Buffer
	PrintFailure(&buf, err)
	assert.Contains(t, buf.String(), "generator is unavailable, try again later")
}

func chatServer(t *testing.T, sessions *[]string) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		*sessions = append(*sessions, req.SessionID)
		mu.Unlock()

		writeJSON(w, http.StatusOK, `{"session_id":"`+testSessionID+`","query_id":"q","answer":"reply to `+req.Message+`","citations":[],"refused":false,"retrieved_chunks":[],"confidence_score":0.7,"processing_time_ms":10}`)
	}))
}

func TestChatCmd_OneShotSavesSession(t *testing.T) {
	useTempConfig(t)

	var sessions []string
	server := chatServer(t, &sessions)
	defer server.Close()

	out, err := execute(t, server.URL, "", ChatCmd(), "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "reply to hello")

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, testSessionID, cfg.SessionID)

	_, err = execute(t, server.URL, "", ChatCmd(), "again")
	require.NoError(t, err)

	_, err = execute(t, server.URL, "", ChatCmd(), "fresh", "--new")
	require.NoError(t, err)

	assert.Equal(t, []string{"", testSessionID, ""}, sessions)
}

func TestChatCmd_Loop(t *testing.T) {
	useTempConfig(t)

	var sessions []string
	server := chatServer(t, &sessions)
	defer server.Close()

	out, err := execute(t, server.URL, "first\n\nsecond\nexit\nignored\n", ChatCmd())
	require.NoError(t, err)

	assert.Contains(t, out, "reply to first")
	assert.Contains(t, out, "reply to second")
	assert.NotContains(t, out, "reply to ignored")
	assert.Equal(t, []string{"", testSessionID}, sessions)
}

func TestHistoryCmd(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{SessionID: testSessionID}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/sessions/" + testSessionID:
			writeJSON(w, http.StatusOK, `{"data":{"session_id":"`+testSessionID+`","message_count":2,"created_at":"2026-01-01T00:00:00Z","last_activity":"2026-01-01T00:01:00Z"}}`)
		case "/v1/sessions/" + testSessionID + "/history":
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, `{"data":{"messages":[
				{"id":"m1","role":"user","content":"what is a node?","citations":[],"refused":false,"created_at":"2026-01-01T00:00:00Z"},
				{"id":"m2","role":"assistant","content":"A process that performs computation.","citations":[],"refused":false,"created_at":"2026-01-01T00:01:00Z"}
			],"next_cursor":"next","has_more":true}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", HistoryCmd(), "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Session "+testSessionID)
	assert.Contains(t, out, "you: what is a node?")
	assert.Contains(t, out, "book: A process that performs computation.")
	assert.Contains(t, out, "--cursor next")
}

func TestHistoryCmd_NoSession(t *testing.T) {
	useTempConfig(t)

	_, err := execute(t, "http://unused", "", HistoryCmd())
	assert.ErrorContains(t, err, "no session id")
}

func TestStatsCmd(t *testing.T) {
	useTempConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rag/stats", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"total_queries_processed":4,"average_response_time_ms":120.5,"average_chunks_retrieved":3.25,"refusal_rate":0.75,"most_common_refusal_reasons":["BELOW_THRESHOLD","EMPTY_RESULTS"],"refusal_reason_counts":{"BELOW_THRESHOLD":2,"EMPTY_RESULTS":1}}`)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", StatsCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Queries processed:   4")
	assert.Contains(t, out, "Refusal rate:        75.0%")
	assert.Regexp(t, `BELOW_THRESHOLD\s+2`, out)
	assert.Regexp(t, `EMPTY_RESULTS\s+1`, out)
}

func TestSearchCmd(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{TopK: 6, SimilarityThreshold: 0.4}))

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rag/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"query_id":"s1","results":[{"chunk_id":"c1","text":"A topic is a named bus.","source_path":"docs/ros2/topics.md","heading":"Topics","chunk_index":2,"score":0.81,"rank":0}],"processing_time_ms":12}`)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", SearchCmd(), "what", "is", "a", "topic")
	require.NoError(t, err)

	assert.Equal(t, "what is a topic", got["question"])
	assert.Equal(t, float64(6), got["top_k"])
	_, hasThreshold := got["similarity_threshold"]
	assert.False(t, hasThreshold, "the saved answer threshold does not filter searches")

	assert.Contains(t, out, "docs/ros2/topics.md § Topics (chunk 2)")
	assert.Contains(t, out, "A topic is a named bus.")
}

func TestSearchCmd_JSON(t *testing.T) {
	useTempConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"query_id":"s1","results":[],"processing_time_ms":3}`)
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "", SearchCmd(), "anything", "--output", "--threshold", "0.9")
	require.NoError(t, err)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "s1", resp.QueryID)
	assert.Empty(t, resp.Results)
}

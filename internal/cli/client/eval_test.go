package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvalCases(t *testing.T) {
	input := `# smoke set
{"question":"What is a ROS 2 node?","expected_sources":["docs/ros2/nodes.md"]}

{"question":"Who won the 1998 World Cup?","expect_refusal":true}
`
	cases, err := parseEvalCases(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, []string{"docs/ros2/nodes.md"}, cases[0].ExpectedSources)
	assert.True(t, cases[1].ExpectRefusal)
}

func TestParseEvalCases_Errors(t *testing.T) {
	_, err := parseEvalCases(strings.NewReader(""))
	assert.ErrorContains(t, err, "no eval cases")

	_, err = parseEvalCases(strings.NewReader(`{"question":"ok"}` + "\n" + `{bad`))
	assert.ErrorContains(t, err, "line 2")

	_, err = parseEvalCases(strings.NewReader(`{"question":"  "}`))
	assert.ErrorContains(t, err, "question is required")
}

func answered(sources ...string) *api.AnswerResponse {
	text := "answer"
	resp := &api.AnswerResponse{Answer: &text, ConfidenceScore: 0.8, ProcessingTimeMs: 100}
	for _, s := range sources {
		resp.Citations = append(resp.Citations, domain.Citation{SourcePath: s})
	}
	return resp
}

func refused() *api.AnswerResponse {
	return &api.AnswerResponse{Refused: true, Reason: "BELOW_THRESHOLD", ConfidenceScore: 0.2, ProcessingTimeMs: 50}
}

func TestRunEval(t *testing.T) {
	cases := []EvalCase{
		{Question: "a", ExpectedSources: []string{"x.md", "y.md"}},
		{Question: "b", ExpectRefusal: true},
		{Question: "c", ExpectRefusal: true},
		{Question: "d"},
		{Question: "e"},
	}
	responses := map[string]*api.AnswerResponse{
		"a": answered("x.md", "z.md"),
		"b": refused(),
		"c": answered(),
		"d": refused(),
	}

	out, err := runEval(cases, func(c EvalCase) (*api.AnswerResponse, error) {
		if c.Question == "e" {
			return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Dependency: "generator"}
		}
		return responses[c.Question], nil
	})
	require.NoError(t, err)

	s := out.Summary
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.DependencyErrors)
	assert.InDelta(t, 0.5, s.RefusalAccuracy, 1e-9)
	assert.Equal(t, 1, s.FalseRefusals)
	assert.Equal(t, 1, s.FalseAnswers)
	assert.InDelta(t, 0.5, s.SourceRecall, 1e-9)
	assert.InDelta(t, 0.5, s.AvgConfidence, 1e-9)
	assert.InDelta(t, 75.0, s.AvgProcessingMs, 1e-9)

	require.Len(t, out.Cases, 5)
	require.NotNil(t, out.Cases[0].SourceRecall)
	assert.Equal(t, []string{"x.md", "z.md"}, out.Cases[0].FoundSources)
	assert.NotEmpty(t, out.Cases[4].Error)
}

func TestRunEval_AbortsOnOtherErrors(t *testing.T) {
	_, err := runEval([]EvalCase{{Question: "a"}}, func(EvalCase) (*api.AnswerResponse, error) {
		return nil, errors.New("connection refused")
	})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSourceRecall(t *testing.T) {
	assert.InDelta(t, 1.0, sourceRecall([]string{"a", "a"}, []string{"a"}), 1e-9)
	assert.InDelta(t, 0.0, sourceRecall([]string{"a"}, nil), 1e-9)
}

func TestEvalCmd_JSONOutput(t *testing.T) {
	useTempConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, refusalBody)
	}))
	defer server.Close()

	file := filepath.Join(t.TempDir(), "cases.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(`{"question":"off topic","expect_refusal":true}`+"\n"), 0600))

	out, err := execute(t, server.URL, "", EvalCmd(), "--file", file, "--output")
	require.NoError(t, err)

	var result EvalOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Summary.Total)
	assert.InDelta(t, 1.0, result.Summary.RefusalAccuracy, 1e-9)
	assert.Empty(t, result.Cases)
}

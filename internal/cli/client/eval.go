package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/spf13/cobra"
)

// EvalCase is one line of an eval file.
type EvalCase struct {
	Question        string   `json:"question"`
	ExpectRefusal   bool     `json:"expect_refusal"`
	ExpectedSources []string `json:"expected_sources,omitempty"`
}

type EvalSummary struct {
	Total            int     `json:"total"`
	RefusalAccuracy  float64 `json:"refusal_accuracy"`
	FalseRefusals    int     `json:"false_refusals"`
	FalseAnswers     int     `json:"false_answers"`
	SourceRecall     float64 `json:"source_recall"`
	AvgConfidence    float64 `json:"avg_confidence"`
	AvgProcessingMs  float64 `json:"avg_processing_ms"`
	DependencyErrors int     `json:"dependency_errors"`
}

type EvalCaseResult struct {
	Question      string   `json:"question"`
	ExpectRefusal bool     `json:"expect_refusal"`
	Refused       bool     `json:"refused"`
	Reason        string   `json:"reason,omitempty"`
	Correct       bool     `json:"correct"`
	SourceRecall  *float64 `json:"source_recall,omitempty"`
	FoundSources  []string `json:"found_sources"`
	Error         string   `json:"error,omitempty"`
}

type EvalOutput struct {
	Summary EvalSummary      `json:"summary"`
	Cases   []EvalCaseResult `json:"cases,omitempty"`
}

// EvalCmd creates the eval command.
func EvalCmd() *cobra.Command {
	var (
		file    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "eval --file <cases.jsonl>",
		Short: "Evaluate answer and refusal quality",
		Long: `Run a set of questions against the server and score the results.

The input file holds one JSON object per line:
  {"question": "...", "expect_refusal": false, "expected_sources": ["docs/ch1.md"]}

Refusal accuracy counts cases where the server answered or refused as expected.
Source recall is the share of expected sources cited, over answered cases that list any.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to read eval file: %w", err)
			}
			defer f.Close()

			cases, err := parseEvalCases(f)
			if err != nil {
				return err
			}

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			ask := func(c EvalCase) (*api.AnswerResponse, error) {
				includeCitations := true
				return client.Ask(cmd.Context(), handlers.QueryRequest{
					Question:         c.Question,
					IncludeCitations: &includeCitations,
				})
			}

			out, err := runEval(cases, ask)
			if err != nil {
				return err
			}
			return printEval(cmd.OutOrStdout(), out, verbose, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Eval JSONL file (required)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-case results")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func parseEvalCases(r io.Reader) ([]EvalCase, error) {
	var cases []EvalCase
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var c EvalCase
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse eval case: %w", line, err)
		}
		if strings.TrimSpace(c.Question) == "" {
			return nil, fmt.Errorf("line %d: question is required", line)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read eval file: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no eval cases provided")
	}
	return cases, nil
}

// runEval scores every case. Dependency failures are counted per case so one outage
// does not abort the run; any other error does.
func runEval(cases []EvalCase, ask func(EvalCase) (*api.AnswerResponse, error)) (*EvalOutput, error) {
	var (
		out           EvalOutput
		correct       int
		answered      int
		sumRecall     float64
		recallCases   int
		sumConfidence float64
		sumMs         float64
	)

	for _, c := range cases {
		result := EvalCaseResult{
			Question:      c.Question,
			ExpectRefusal: c.ExpectRefusal,
			FoundSources:  []string{},
		}

		resp, err := ask(c)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || !apiErr.IsDependencyFailure() {
				return nil, fmt.Errorf("query failed for %q: %w", c.Question, err)
			}
			out.Summary.DependencyErrors++
			result.Error = apiErr.Error()
			out.Cases = append(out.Cases, result)
			continue
		}

		answered++
		sumConfidence += resp.ConfidenceScore
		sumMs += float64(resp.ProcessingTimeMs)

		result.Refused = resp.Refused
		result.Reason = resp.Reason
		result.Correct = resp.Refused == c.ExpectRefusal
		if result.Correct {
			correct++
		} else if resp.Refused {
			out.Summary.FalseRefusals++
		} else {
			out.Summary.FalseAnswers++
		}

		for _, cit := range resp.Citations {
			result.FoundSources = append(result.FoundSources, cit.SourcePath)
		}

		if !c.ExpectRefusal && !resp.Refused && len(c.ExpectedSources) > 0 {
			recall := sourceRecall(c.ExpectedSources, result.FoundSources)
			result.SourceRecall = &recall
			sumRecall += recall
			recallCases++
		}

		out.Cases = append(out.Cases, result)
	}

	out.Summary.Total = len(cases)
	if answered > 0 {
		out.Summary.RefusalAccuracy = float64(correct) / float64(answered)
		out.Summary.AvgConfidence = sumConfidence / float64(answered)
		out.Summary.AvgProcessingMs = sumMs / float64(answered)
	}
	if recallCases > 0 {
		out.Summary.SourceRecall = sumRecall / float64(recallCases)
	}
	return &out, nil
}

func sourceRecall(expected, found []string) float64 {
	foundSet := make(map[string]struct{}, len(found))
	for _, s := range found {
		foundSet[s] = struct{}{}
	}

	expectedSet := make(map[string]struct{}, len(expected))
	hits := 0
	for _, s := range expected {
		if _, dup := expectedSet[s]; dup {
			continue
		}
		expectedSet[s] = struct{}{}
		if _, ok := foundSet[s]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(expectedSet))
}

func printEval(w io.Writer, out *EvalOutput, verbose, outputJSON bool) error {
	if outputJSON {
		if !verbose {
			out = &EvalOutput{Summary: out.Summary}
		}
		return printJSON(w, out)
	}

	s := out.Summary
	fmt.Fprintf(w, "Eval results (%d cases)\n", s.Total)
	fmt.Fprintf(w, "Refusal accuracy: %.4f (false refusals %d, false answers %d)\n",
		s.RefusalAccuracy, s.FalseRefusals, s.FalseAnswers)
	fmt.Fprintf(w, "Source recall:    %.4f\n", s.SourceRecall)
	fmt.Fprintf(w, "Avg confidence:   %.4f\n", s.AvgConfidence)
	fmt.Fprintf(w, "Avg latency:      %.1f ms\n", s.AvgProcessingMs)
	if s.DependencyErrors > 0 {
		errorColor.Fprintf(w, "Dependency errors: %d\n", s.DependencyErrors)
	}

	if verbose {
		for _, r := range out.Cases {
			mark := answerColor.Sprint("ok")
			if r.Error != "" {
				mark = errorColor.Sprint("error")
			} else if !r.Correct {
				mark = refusalColor.Sprint("miss")
			}
			fmt.Fprintf(w, "\n[%s] %s\n", mark, r.Question)
			fmt.Fprintf(w, "  expect_refusal=%t refused=%t %s\n", r.ExpectRefusal, r.Refused, r.Reason)
			if r.SourceRecall != nil {
				fmt.Fprintf(w, "  source recall %.4f, found %v\n", *r.SourceRecall, r.FoundSources)
			}
		}
	}
	return nil
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/fatih/color"
)

var (
	answerColor  = color.New(color.FgGreen)
	refusalColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	faintColor   = color.New(color.Faint)
)

func printJSON(w io.Writer, v interface{}) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(encoded))
	return nil
}

// printAnswer renders an answer or refusal for a terminal.
func printAnswer(w io.Writer, resp *api.AnswerResponse, showChunks bool) {
	if resp.Refused {
		refusalColor.Fprintf(w, "Refused (%s)\n", resp.Reason)
		if resp.Message != "" {
			fmt.Fprintln(w, resp.Message)
		}
	} else if resp.Answer != nil {
		answerColor.Fprintln(w, *resp.Answer)
	}

	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, c := range resp.Citations {
			heading := c.Heading
			if heading == "" {
				heading = "-"
			}
			fmt.Fprintf(w, "  [%d] %s § %s (chunk %d)\n", i+1, c.SourcePath, heading, c.ChunkIndex)
		}
	}

	if showChunks && len(resp.RetrievedChunks) > 0 {
		fmt.Fprintln(w, "\nRetrieved:")
		for _, ch := range resp.RetrievedChunks {
			fmt.Fprintf(w, "  #%d %.3f %s\n", ch.Rank+1, ch.Score, ch.SourcePath)
			if ch.Preview != "" {
				faintColor.Fprintf(w, "     %s\n", strings.ReplaceAll(ch.Preview, "\n", " "))
			}
		}
	}

	faintColor.Fprintf(w, "\nconfidence %.3f · %dms · %s\n", resp.ConfidenceScore, resp.ProcessingTimeMs, resp.QueryID)
}

// PrintFailure renders a command error. Dependency outages get a retry hint.
func PrintFailure(w io.Writer, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsDependencyFailure() {
		errorColor.Fprintf(w, "%s is unavailable, try again later\n", apiErr.Dependency)
		return
	}
	errorColor.Fprintln(w, err.Error())
}

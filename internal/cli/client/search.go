package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var retrieval retrievalFlags

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Show the book passages closest to a question",
		Long: `Retrieve the ranked book chunks for a question without generating an answer.
Useful to check what the answer would be grounded on.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}

			cfg, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			topK, threshold, err := retrieval.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			// config.toml's threshold is an answer default; only an explicit flag filters a search
			if !cmd.Flags().Changed("threshold") {
				threshold = nil
			}

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := client.Search(cmd.Context(), handlers.SearchRequest{
				Question:            question,
				TopK:                topK,
				SimilarityThreshold: threshold,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printSearch(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	retrieval.register(cmd)
	return cmd
}

func printSearch(w io.Writer, resp *api.SearchResponse) {
	if len(resp.Results) == 0 {
		refusalColor.Fprintln(w, "No matching passages.")
		return
	}
	for _, hit := range resp.Results {
		heading := hit.Heading
		if heading == "" {
			heading = "-"
		}
		answerColor.Fprintf(w, "#%d %.3f ", hit.Rank+1, hit.Score)
		fmt.Fprintf(w, "%s § %s (chunk %d)\n", hit.SourcePath, heading, hit.ChunkIndex)
		faintColor.Fprintf(w, "     %s\n", strings.ReplaceAll(hit.Text, "\n", " "))
	}
	faintColor.Fprintf(w, "\n%d results · %dms · %s\n", len(resp.Results), resp.ProcessingTimeMs, resp.QueryID)
}

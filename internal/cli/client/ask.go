package client

import (
	"fmt"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/spf13/cobra"
)

// retrievalFlags are the per-request overrides shared by ask, chat and search.
type retrievalFlags struct {
	topK      int
	threshold float64
}

func (f *retrievalFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "Number of chunks to retrieve (server default when unset)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Minimum similarity score in [0,1] (server default when unset)")
}

// resolve applies flag values, falling back to config.toml for flags the user did not set.
func (f *retrievalFlags) resolve(cmd *cobra.Command, cfg *GlobalConfig) (*int, *float64, error) {
	var (
		topK      *int
		threshold *float64
	)

	if cmd.Flags().Changed("top-k") {
		if f.topK < 1 {
			return nil, nil, fmt.Errorf("--top-k must be at least 1")
		}
		v := f.topK
		topK = &v
	} else if cfg != nil && cfg.TopK > 0 {
		v := cfg.TopK
		topK = &v
	}

	if cmd.Flags().Changed("threshold") {
		if f.threshold < 0 || f.threshold > 1 {
			return nil, nil, fmt.Errorf("--threshold must be between 0 and 1")
		}
		v := f.threshold
		threshold = &v
	} else if cfg != nil && cfg.SimilarityThreshold > 0 {
		v := cfg.SimilarityThreshold
		threshold = &v
	}

	return topK, threshold, nil
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		retrieval   retrievalFlags
		noCitations bool
		showChunks  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the book",
		Long: `Ask a single question. The answer is grounded in retrieved book passages,
or the server refuses when the book does not cover the question.`,
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

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			includeCitations := !noCitations
			resp, err := client.Ask(cmd.Context(), handlers.QueryRequest{
				Question:            question,
				TopK:                topK,
				SimilarityThreshold: threshold,
				IncludeCitations:    &includeCitations,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printAnswer(cmd.OutOrStdout(), resp, showChunks)
			return nil
		},
	}

	retrieval.register(cmd)
	cmd.Flags().BoolVar(&noCitations, "no-citations", false, "Omit source citations")
	cmd.Flags().BoolVar(&showChunks, "show-chunks", false, "Show the retrieved chunks and their scores")

	return cmd
}

package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate query statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(w, stats)
			}

			fmt.Fprintf(w, "Queries processed:   %d\n", stats.TotalQueriesProcessed)
			fmt.Fprintf(w, "Avg response time:   %.1f ms\n", stats.AverageResponseTimeMs)
			fmt.Fprintf(w, "Avg chunks retrieved: %.2f\n", stats.AverageChunksRetrieved)
			fmt.Fprintf(w, "Refusal rate:        %.1f%%\n", stats.RefusalRate*100)
			if len(stats.MostCommonRefusalReasons) > 0 {
				fmt.Fprintln(w, "Refusal reasons:")
				for _, reason := range stats.MostCommonRefusalReasons {
					fmt.Fprintf(w, "  %-22s %d\n", reason, stats.RefusalReasonCounts[reason])
				}
			}
			return nil
		},
	}
}

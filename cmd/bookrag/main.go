package main

import (
	"os"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/cli"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookrag",
		Short: "Ask questions about the book",
		Long: `bookrag answers questions from the book's content and refuses when the
book does not cover them.

Environment variables:
  BOOKRAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.EvalCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		client.PrintFailure(os.Stderr, err)
		os.Exit(1)
	}
}

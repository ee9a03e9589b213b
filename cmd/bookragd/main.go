package main

import (
	"fmt"
	"os"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/cli"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/cli/admin"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "bookragd",
		Short:   "Book RAG daemon",
		Long:    "Book RAG daemon for serving grounded answers over HTTP and MCP, running migrations and auditing the vector index",
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.MCPCmd())
	rootCmd.AddCommand(admin.AuditCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package admin

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/mcp"
	"github.com/spf13/cobra"
)

// MCPCmd returns the mcp command
func MCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_book tool over MCP (stdio)",
		Long:  "Start a Model Context Protocol server on stdin/stdout exposing the ask_book tool. Logs go to stderr.",
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// zap writes to stderr; stdout carries the protocol
	logger := logging.MustNew(cfg.Debug)
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(a.answers, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp server starting")
	return srv.Run(ctx)
}

package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/spf13/cobra"
)

type auditOutput struct {
	Checked      int      `json:"checked"`
	OrphanCount  int      `json:"orphan_count"`
	OrphanSample []string `json:"orphan_sample"`
	Consistent   bool     `json:"consistent"`
}

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the vector index against the chunk store",
		Long:  "Page through every indexed chunk id and report ids whose chunk is missing from the chunk store",
		RunE:  runAudit,
	}

	cmd.Flags().Bool("fail-on-orphans", false, "Exit non-zero when orphaned index entries are found")

	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.MustNew(cfg.Debug)
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.audit.Run(ctx)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	out := auditOutput{
		Checked:      report.Checked,
		OrphanCount:  report.OrphanCount,
		OrphanSample: report.OrphanSample,
		Consistent:   report.Consistent(),
	}
	if out.OrphanSample == nil {
		out.OrphanSample = []string{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if fail, _ := cmd.Flags().GetBool("fail-on-orphans"); fail && !out.Consistent {
		return fmt.Errorf("%d orphaned index entries", out.OrphanCount)
	}
	return nil
}

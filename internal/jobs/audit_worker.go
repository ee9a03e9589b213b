package jobs

import (
	"context"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"go.uber.org/zap"
)

// AuditRunner checks the vector index against the chunk store.
type AuditRunner interface {
	Run(ctx context.Context) (*service.AuditReport, error)
}

// AuditWorker reports index entries whose chunks are missing from the store.
type AuditWorker struct {
	audit  AuditRunner
	logger *zap.Logger
}

func NewAuditWorker(audit AuditRunner, logger *zap.Logger) *AuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditWorker{audit: audit, logger: logger}
}

// ProcessJobs implements the JobProcessor interface
func (w *AuditWorker) ProcessJobs(ctx context.Context) error {
	report, err := w.audit.Run(ctx)
	if err != nil {
		return err
	}

	if report.Consistent() {
		w.logger.Info("consistency audit passed", zap.Int("checked", report.Checked))
		return nil
	}

	w.logger.Warn("consistency audit found orphaned index entries",
		zap.Int("checked", report.Checked),
		zap.Int("orphans", report.OrphanCount),
		zap.Strings("sample", report.OrphanSample),
	)
	return nil
}

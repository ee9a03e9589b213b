package service

import (
	"context"
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"go.uber.org/zap"
)

const (
	defaultAuditPageSize = 200
	maxReportedOrphans   = 100
)

// IndexLister pages through the ids held by the vector index.
type IndexLister interface {
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// AuditReport summarizes one consistency pass.
type AuditReport struct {
	Checked      int
	OrphanCount  int
	OrphanSample []string
}

// Consistent reports whether every indexed id resolved in the chunk store.
func (r *AuditReport) Consistent() bool {
	return r.OrphanCount == 0
}

// AuditService finds vector index entries whose chunk is missing from the store.
type AuditService struct {
	index    IndexLister
	store    ChunkStore
	pageSize int
	logger   *zap.Logger
}

func NewAuditService(index IndexLister, store ChunkStore, pageSize int, logger *zap.Logger) *AuditService {
	if pageSize <= 0 {
		pageSize = defaultAuditPageSize
	}
	return &AuditService{
		index:    index,
		store:    store,
		pageSize: pageSize,
		logger:   logging.OrNop(logger),
	}
}

// Run walks the whole index once.
func (s *AuditService) Run(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{OrphanSample: []string{}}
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ids, err := s.index.ListIDs(ctx, after, s.pageSize)
		if err != nil {
			return report, domain.NewDependencyError(domain.DependencyVectorIndex, fmt.Errorf("list ids: %w", err))
		}
		if len(ids) == 0 {
			break
		}

		chunks, err := s.store.Fetch(ctx, ids)
		if err != nil {
			return report, domain.NewDependencyError(domain.DependencyChunkStore, fmt.Errorf("fetch page: %w", err))
		}

		for _, id := range ids {
			report.Checked++
			if _, ok := chunks[id]; ok {
				continue
			}
			report.OrphanCount++
			if len(report.OrphanSample) < maxReportedOrphans {
				report.OrphanSample = append(report.OrphanSample, id)
			}
			s.logger.Warn("orphaned index entry", zap.String("chunk_id", id))
		}

		after = ids[len(ids)-1]
		if len(ids) < s.pageSize {
			break
		}
	}

	s.logger.Info("consistency audit finished",
		zap.Int("checked", report.Checked),
		zap.Int("orphans", report.OrphanCount),
	)
	return report, nil
}

package service

import "context"

// QueryLogEntry captures one answered or refused query.
type QueryLogEntry struct {
	ID          string
	Question    string
	TopK        int
	Threshold   float64
	Refused     bool
	Reason      string
	ResultCount int
	BestScore   float64
	DurationMs  int64
}

// ReasonCount is how often one refusal reason occurred.
type ReasonCount struct {
	Reason string
	Count  int64
}

// QueryStats aggregates the query log.
type QueryStats struct {
	TotalQueries           int64
	AverageResponseTimeMs  float64
	AverageChunksRetrieved float64
	RefusalRate            float64
	RefusalReasons         []ReasonCount
}

// QueryLogRepository persists query logs.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) error
}

// QueryStatsRepository aggregates query logs.
type QueryStatsRepository interface {
	Stats(ctx context.Context, topReasons int) (*QueryStats, error)
}

// StatsService reports retrieval statistics.
type StatsService struct {
	repo QueryStatsRepository
}

func NewStatsService(repo QueryStatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Stats(ctx context.Context) (*QueryStats, error) {
	stats, err := s.repo.Stats(ctx, 5)
	if err != nil {
		return nil, err
	}
	if stats.RefusalReasons == nil {
		stats.RefusalReasons = []ReasonCount{}
	}
	return stats, nil
}

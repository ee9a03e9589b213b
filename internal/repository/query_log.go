package repository

import (
	"context"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores one row per answered or refused query.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO query_logs (id, question, top_k, similarity_threshold, refused, reason, result_count, best_score, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.Question,
		entry.TopK,
		entry.Threshold,
		entry.Refused,
		nullableString(entry.Reason),
		entry.ResultCount,
		entry.BestScore,
		entry.DurationMs,
	)
	return err
}

// Stats aggregates the query log. The reason breakdown is limited to the top entries.
func (r *QueryLogRepository) Stats(ctx context.Context, topReasons int) (*service.QueryStats, error) {
	if topReasons <= 0 {
		topReasons = 5
	}

	var stats service.QueryStats
	var refused int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(duration_ms), 0)::float8,
		        COALESCE(AVG(result_count), 0)::float8,
		        COUNT(*) FILTER (WHERE refused)
		 FROM query_logs`,
	).Scan(&stats.TotalQueries, &stats.AverageResponseTimeMs, &stats.AverageChunksRetrieved, &refused)
	if err != nil {
		return nil, err
	}
	if stats.TotalQueries > 0 {
		stats.RefusalRate = float64(refused) / float64(stats.TotalQueries)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT reason, COUNT(*) AS n
		 FROM query_logs
		 WHERE reason IS NOT NULL
		 GROUP BY reason
		 ORDER BY n DESC, reason
		 LIMIT $1`,
		topReasons,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rc service.ReasonCount
		if err := rows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, err
		}
		stats.RefusalReasons = append(stats.RefusalReasons, rc)
	}
	return &stats, rows.Err()
}

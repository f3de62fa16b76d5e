package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinia/opinia/pkg/limits"
)

// usageCounters wires the limit guard's counters to the product tables.
// Feedbacks are capped per calendar month, the other resources are absolute.
func usageCounters(pool *pgxpool.Pool) limits.CounterRegistry {
	counters := limits.NewRegistry()
	counters.Register(limits.ResourceLocations, countRows(pool,
		`SELECT COUNT(*) FROM locations WHERE organization_id = $1`))
	counters.Register(limits.ResourceUsers, countRows(pool,
		`SELECT COUNT(*) FROM organization_users WHERE organization_id = $1`))
	counters.Register(limits.ResourceFeedbacks, countRows(pool,
		`SELECT COUNT(*) FROM feedbacks
		 WHERE organization_id = $1 AND created_at >= date_trunc('month', NOW())`))
	return counters
}

func countRows(pool *pgxpool.Pool, query string) limits.CounterFunc {
	return func(ctx context.Context, orgID uuid.UUID) (int64, error) {
		var n int64
		if err := pool.QueryRow(ctx, query, orgID).Scan(&n); err != nil {
			return 0, fmt.Errorf("count usage: %w", err)
		}
		return n, nil
	}
}

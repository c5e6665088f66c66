package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

const analyticsKeyTTL = 48 * time.Hour

// AnalyticsRepository keeps the live per-route passenger counters in redis and
// mirrors them into postgres for history. Redis is the hot path read by the
// driver dashboard; the postgres upsert keeps the numbers after the key expires.
type AnalyticsRepository struct {
	db  *sqlx.DB
	rdb *redis.Client
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB, rdb *redis.Client) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, rdb: rdb}
}

func analyticsKey(routeID, date string, shift models.Shift) string {
	return fmt.Sprintf("route:%s:%s:%s", routeID, date, shift)
}

// RecordScan bumps the counters for one successful scan. Boarding scans add a
// passenger; every scan counts as a check-in.
func (r *AnalyticsRepository) RecordScan(ctx context.Context, routeID, date string, shift models.Shift, phase models.ScanPhase) error {
	key := analyticsKey(routeID, date, shift)
	pipe := r.rdb.TxPipeline()
	if phase == models.PhaseBoarding {
		pipe.HIncrBy(ctx, key, "total_passengers", 1)
	}
	pipe.HIncrBy(ctx, key, "checked_in", 1)
	pipe.Expire(ctx, key, analyticsKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record scan counters: %w", err)
	}

	query := `INSERT INTO route_analytics (route_id, date, shift, total_passengers, checked_in)
VALUES ($1, $2, $3, $4, 1)
ON CONFLICT (route_id, date, shift)
DO UPDATE SET total_passengers = route_analytics.total_passengers + $4,
    checked_in = route_analytics.checked_in + 1`
	boarded := 0
	if phase == models.PhaseBoarding {
		boarded = 1
	}
	if _, err := r.db.ExecContext(ctx, query, routeID, date, shift, boarded); err != nil {
		return fmt.Errorf("mirror scan counters: %w", err)
	}
	return nil
}

// Counters reads the live counter set for one route/day/shift from redis.
func (r *AnalyticsRepository) Counters(ctx context.Context, routeID, date string, shift models.Shift) (*models.RouteAnalytics, error) {
	vals, err := r.rdb.HGetAll(ctx, analyticsKey(routeID, date, shift)).Result()
	if err != nil {
		return nil, fmt.Errorf("read scan counters: %w", err)
	}
	out := &models.RouteAnalytics{RouteID: routeID, Date: date, Shift: shift}
	fmt.Sscanf(vals["total_passengers"], "%d", &out.TotalPassengers)
	fmt.Sscanf(vals["checked_in"], "%d", &out.CheckedIn)
	return out, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

// IntentRepository handles ride-intent declarations and the per-student score
// balances the reconciler maintains.
type IntentRepository struct {
	db *sqlx.DB
}

// NewIntentRepository constructs the repository.
func NewIntentRepository(db *sqlx.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// ListUnprocessed returns every intent for the date the reconciler has not yet
// finalized.
func (r *IntentRepository) ListUnprocessed(ctx context.Context, date string) ([]models.RideIntent, error) {
	query := `SELECT id, student_id, route_id, shift, travel_date, intent, declared_at, boarded,
points_delta, reliability_delta, processed, processed_at
FROM ride_intents WHERE travel_date = $1 AND processed = FALSE`
	var intents []models.RideIntent
	if err := r.db.SelectContext(ctx, &intents, query, date); err != nil {
		return nil, fmt.Errorf("list unprocessed intents: %w", err)
	}
	return intents, nil
}

// Finalize marks one intent processed with its reconciliation outcome. The
// processed guard in the WHERE clause makes overlapping runs apply the score
// at most once; the return value reports whether this run won.
func (r *IntentRepository) Finalize(ctx context.Context, id string, boarded bool, pointsDelta, reliabilityDelta int, at time.Time) (bool, error) {
	query := `UPDATE ride_intents
SET boarded = $1, points_delta = $2, reliability_delta = $3, processed = TRUE, processed_at = $4
WHERE id = $5 AND processed = FALSE`
	res, err := r.db.ExecContext(ctx, query, boarded, pointsDelta, reliabilityDelta, at, id)
	if err != nil {
		return false, fmt.Errorf("finalize intent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize intent rows affected: %w", err)
	}
	return affected > 0, nil
}

// ApplyScore adjusts a student's reward points and reliability in one upsert.
// GREATEST/LEAST enforce the 0 floor and the [0,100] reliability clamp in SQL
// so concurrent adjustments cannot escape the bounds.
func (r *IntentRepository) ApplyScore(ctx context.Context, studentID string, pointsDelta, reliabilityDelta int) error {
	query := `INSERT INTO student_scores (student_id, points, reliability)
VALUES ($1, GREATEST(0, $2), LEAST(100, GREATEST(0, 100 + $3)))
ON CONFLICT (student_id)
DO UPDATE SET points = GREATEST(0, student_scores.points + $2),
    reliability = LEAST(100, GREATEST(0, student_scores.reliability + $3))`
	if _, err := r.db.ExecContext(ctx, query, studentID, pointsDelta, reliabilityDelta); err != nil {
		return fmt.Errorf("apply intent score: %w", err)
	}
	return nil
}

// CountsByRoute aggregates YES/NO declarations per route for one travel date.
func (r *IntentRepository) CountsByRoute(ctx context.Context, date string) ([]models.RouteIntentCount, error) {
	query := `SELECT route_id,
COUNT(*) FILTER (WHERE intent = 'YES') AS yes_count,
COUNT(*) FILTER (WHERE intent = 'NO') AS no_count
FROM ride_intents WHERE travel_date = $1 GROUP BY route_id`
	var counts []models.RouteIntentCount
	if err := r.db.SelectContext(ctx, &counts, query, date); err != nil {
		return nil, fmt.Errorf("intent counts by route: %w", err)
	}
	return counts, nil
}

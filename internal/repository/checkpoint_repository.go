package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

const checkpointColumns = `id, driver_id, route_id, shift, date, phase, start_odometer, start_at,
destination_odometer, destination_at, return_odometer, return_at, home_odometer, home_at, total_km`

// CheckpointRepository handles persistence of driver trip checkpoints. One row
// exists per (driver, date, shift), created at shift start and mutated through
// the three later transitions.
type CheckpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository constructs the repository.
func NewCheckpointRepository(db *sqlx.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Create inserts the shift-start row. A second start on the same day/shift
// trips the unique constraint and surfaces as a conflict.
func (r *CheckpointRepository) Create(ctx context.Context, cp *models.TripCheckpoint) error {
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	query := `INSERT INTO trip_checkpoints (id, driver_id, route_id, shift, date, phase, start_odometer, start_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		cp.ID, cp.DriverID, cp.RouteID, cp.Shift, cp.Date, cp.Phase, cp.StartOdometer, cp.StartAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return appErrors.Clone(appErrors.ErrConflict, "shift already started for this driver today")
		}
		return fmt.Errorf("create trip checkpoint: %w", err)
	}
	return nil
}

// GetForDriver loads the checkpoint row for one driver/day/shift.
func (r *CheckpointRepository) GetForDriver(ctx context.Context, driverID, date string, shift models.Shift) (*models.TripCheckpoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_checkpoints WHERE driver_id = $1 AND date = $2 AND shift = $3`, checkpointColumns)
	var cp models.TripCheckpoint
	if err := r.db.GetContext(ctx, &cp, query, driverID, date, shift); err != nil {
		return nil, err
	}
	return &cp, nil
}

// AdvanceToDestination stamps the reached-destination reading and flips every
// onboarded student's journey to arrived, all in one transaction. The phase
// guard in the WHERE clause keeps concurrent transitions from double-applying.
// Returns how many journey rows were stamped.
func (r *CheckpointRepository) AdvanceToDestination(ctx context.Context, cp *models.TripCheckpoint, odometer float64, at time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reached-destination: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	query := `UPDATE trip_checkpoints SET phase = $1, destination_odometer = $2, destination_at = $3
WHERE id = $4 AND phase = $5`
	res, err := tx.ExecContext(ctx, query, models.PhaseCheckpointAtUniversity, odometer, at, cp.ID, models.PhaseCheckpointBoarding)
	if err != nil {
		return 0, fmt.Errorf("advance trip checkpoint: %w", err)
	}
	if err := r.requireRow(res); err != nil {
		return 0, err
	}
	updated, err := bulkMarkReachedDestination(ctx, tx, cp.Date, cp.RouteID, cp.Shift, at)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reached-destination: %w", err)
	}
	commit = true
	return updated, nil
}

// AdvanceToReturning stamps the start-return reading. No journey rows move on
// this transition, so it stays a single statement.
func (r *CheckpointRepository) AdvanceToReturning(ctx context.Context, id string, odometer float64, at time.Time) error {
	query := `UPDATE trip_checkpoints SET phase = $1, return_odometer = $2, return_at = $3
WHERE id = $4 AND phase = $5`
	res, err := r.db.ExecContext(ctx, query, models.PhaseCheckpointReturning, odometer, at, id, models.PhaseCheckpointAtUniversity)
	if err != nil {
		return fmt.Errorf("advance trip checkpoint: %w", err)
	}
	return r.requireRow(res)
}

// Complete stamps the reached-home reading and the trip's total distance, and
// completes every return-scanned journey in the same transaction. Returns how
// many journey rows were completed.
func (r *CheckpointRepository) Complete(ctx context.Context, cp *models.TripCheckpoint, odometer, totalKm float64, at time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reached-home: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	query := `UPDATE trip_checkpoints SET phase = $1, home_odometer = $2, home_at = $3, total_km = $4
WHERE id = $5 AND phase = $6`
	res, err := tx.ExecContext(ctx, query, models.PhaseCheckpointCompleted, odometer, at, totalKm, cp.ID, models.PhaseCheckpointReturning)
	if err != nil {
		return 0, fmt.Errorf("complete trip checkpoint: %w", err)
	}
	if err := r.requireRow(res); err != nil {
		return 0, err
	}
	updated, err := bulkMarkReachedHome(ctx, tx, cp.Date, cp.RouteID, cp.Shift, at)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reached-home: %w", err)
	}
	commit = true
	return updated, nil
}

func (r *CheckpointRepository) requireRow(res interface{ RowsAffected() (int64, error) }) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checkpoint rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrInvalidPhaseTransition, "checkpoint phase changed concurrently")
	}
	return nil
}

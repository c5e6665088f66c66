package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

const journeyColumns = `id, student_id, route_id, shift, credential_id, credential_kind, date, status,
onboarded_at, reached_destination_at, left_for_home_at, reached_home_at, absent, absent_reason, marked_by, updated_at`

// JourneyRepository handles persistence of the per-student daily journey log.
// Every write is an upsert keyed on (student_id, date): the table holds exactly
// one row per student per day.
type JourneyRepository struct {
	db *sqlx.DB
}

// NewJourneyRepository constructs the repository.
func NewJourneyRepository(db *sqlx.DB) *JourneyRepository {
	return &JourneyRepository{db: db}
}

// upsertBoardingJourney records the boarding edge on the given executor, so
// the scan transaction can carry it. If the absence sweep or an earlier scan
// already created today's row, only the boarding fields are filled in; an
// existing onboarded_at is never overwritten.
func upsertBoardingJourney(ctx context.Context, ext sqlx.ExtContext, log *models.JourneyLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `INSERT INTO journey_logs (id, student_id, route_id, shift, credential_id, credential_kind, date, status, onboarded_at, absent, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status,
    onboarded_at = COALESCE(journey_logs.onboarded_at, EXCLUDED.onboarded_at),
    credential_id = EXCLUDED.credential_id,
    credential_kind = EXCLUDED.credential_kind,
    absent = FALSE,
    absent_reason = NULL,
    updated_at = EXCLUDED.updated_at`
	if _, err := ext.ExecContext(ctx, query,
		log.ID, log.StudentID, log.RouteID, log.Shift, log.CredentialID, log.CredentialKind,
		log.Date, models.JourneyInProgress, log.OnboardedAt, log.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert boarding journey: %w", err)
	}
	return nil
}

// markLeftForHome stamps the return-scan edge on one student's row.
func markLeftForHome(ctx context.Context, ext sqlx.ExtContext, studentID, date string, at time.Time) error {
	query := `UPDATE journey_logs SET left_for_home_at = $1, updated_at = $1
WHERE student_id = $2 AND date = $3 AND left_for_home_at IS NULL`
	if _, err := ext.ExecContext(ctx, query, at, studentID, date); err != nil {
		return fmt.Errorf("mark left for home: %w", err)
	}
	return nil
}

// bulkMarkReachedDestination stamps arrival for every onboarded student on the
// route/shift in one conditional update, inside the checkpoint transition's
// transaction. Idempotent: rows already stamped are skipped.
func bulkMarkReachedDestination(ctx context.Context, ext sqlx.ExtContext, date, routeID string, shift models.Shift, at time.Time) (int64, error) {
	query := `UPDATE journey_logs SET reached_destination_at = $1, updated_at = $1
WHERE date = $2 AND route_id = $3 AND shift = $4 AND onboarded_at IS NOT NULL AND reached_destination_at IS NULL`
	res, err := ext.ExecContext(ctx, query, at, date, routeID, shift)
	if err != nil {
		return 0, fmt.Errorf("bulk mark reached destination: %w", err)
	}
	return res.RowsAffected()
}

// bulkMarkReachedHome completes the journey for every student who scanned for
// the return leg. Students who never scanned back stay in_progress.
func bulkMarkReachedHome(ctx context.Context, ext sqlx.ExtContext, date, routeID string, shift models.Shift, at time.Time) (int64, error) {
	query := `UPDATE journey_logs SET reached_home_at = $1, status = $2, updated_at = $1
WHERE date = $3 AND route_id = $4 AND shift = $5 AND left_for_home_at IS NOT NULL AND reached_home_at IS NULL`
	res, err := ext.ExecContext(ctx, query, at, models.JourneyCompleted, date, routeID, shift)
	if err != nil {
		return 0, fmt.Errorf("bulk mark reached home: %w", err)
	}
	return res.RowsAffected()
}

// MarkAbsent upserts an absence row for one student. The conditional DO UPDATE
// never touches a student who boarded between sweep runs, and never re-marks a
// row a previous sweep already settled, which is what makes the detector safe
// to re-run.
func (r *JourneyRepository) MarkAbsent(ctx context.Context, log *models.JourneyLog) (bool, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `INSERT INTO journey_logs (id, student_id, route_id, shift, credential_id, credential_kind, date, status, absent, absent_reason, marked_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status,
    absent = TRUE,
    absent_reason = EXCLUDED.absent_reason,
    marked_by = EXCLUDED.marked_by,
    updated_at = EXCLUDED.updated_at
WHERE journey_logs.onboarded_at IS NULL AND NOT journey_logs.absent
RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query,
		log.ID, log.StudentID, log.RouteID, log.Shift, log.CredentialID, log.CredentialKind,
		log.Date, models.JourneyAbsent, log.AbsentReason, log.MarkedBy, log.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict row had onboarded_at set or was already marked absent.
			return false, nil
		}
		return false, fmt.Errorf("mark absent: %w", err)
	}
	return true, nil
}

// GetByStudentDate returns one student's journey log for a day.
func (r *JourneyRepository) GetByStudentDate(ctx context.Context, studentID, date string) (*models.JourneyLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM journey_logs WHERE student_id = $1 AND date = $2`, journeyColumns)
	var log models.JourneyLog
	if err := r.db.GetContext(ctx, &log, query, studentID, date); err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByRoute returns all journey logs for a route/shift/day.
func (r *JourneyRepository) ListByRoute(ctx context.Context, routeID, date string, shift models.Shift) ([]models.JourneyLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM journey_logs WHERE route_id = $1 AND date = $2 AND shift = $3 ORDER BY updated_at DESC`, journeyColumns)
	var logs []models.JourneyLog
	if err := r.db.SelectContext(ctx, &logs, query, routeID, date, shift); err != nil {
		return nil, fmt.Errorf("list journeys by route: %w", err)
	}
	return logs, nil
}

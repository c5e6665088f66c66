package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

const pgUniqueViolation = "23505"

// AttendanceRepository handles persistence for the immutable scan audit trail.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// insertAttendance writes one attendance record on the given executor, so
// ScanRepository can run it inside the same transaction as the journey and
// counter writes. The table's unique constraint on (credential_id, date,
// scan_phase) makes concurrent duplicate scans resolve to exactly one winner;
// the loser surfaces as ErrDuplicatePhase.
func insertAttendance(ctx context.Context, ext sqlx.ExtContext, rec *models.AttendanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `INSERT INTO attendance_records (id, credential_id, credential_kind, student_id, route_id, date, shift, scan_phase, scanned_at, driver_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := ext.ExecContext(ctx, query,
		rec.ID, rec.CredentialID, rec.CredentialKind, rec.StudentID, rec.RouteID,
		rec.Date, rec.Shift, rec.ScanPhase, rec.ScannedAt, rec.DriverID,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return appErrors.Clonef(appErrors.ErrDuplicatePhase, "attendance already recorded for phase %s on %s", rec.ScanPhase, rec.Date)
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// Exists reports whether a record is present for (credential, date, phase).
func (r *AttendanceRepository) Exists(ctx context.Context, credentialID, date string, phase models.ScanPhase) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE credential_id = $1 AND date = $2 AND scan_phase = $3)`
	if err := r.db.GetContext(ctx, &exists, query, credentialID, date, phase); err != nil {
		return false, fmt.Errorf("check attendance existence: %w", err)
	}
	return exists, nil
}

// CountForCredential returns how many scans the credential recorded on a day.
func (r *AttendanceRepository) CountForCredential(ctx context.Context, credentialID, date string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM attendance_records WHERE credential_id = $1 AND date = $2`
	if err := r.db.GetContext(ctx, &count, query, credentialID, date); err != nil {
		return 0, fmt.Errorf("count attendance for credential: %w", err)
	}
	return count, nil
}

// HasBoarding reports whether the student produced a boarding record that day.
func (r *AttendanceRepository) HasBoarding(ctx context.Context, studentID, routeID, date string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE student_id = $1 AND route_id = $2 AND date = $3 AND scan_phase = $4)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, routeID, date, models.PhaseBoarding); err != nil {
		return false, fmt.Errorf("check boarding attendance: %w", err)
	}
	return exists, nil
}

// BoardingCountsByRoute aggregates boarding scans per route for one day.
func (r *AttendanceRepository) BoardingCountsByRoute(ctx context.Context, date string) ([]models.RouteBoardingCount, error) {
	query := `SELECT route_id, COUNT(*) AS count FROM attendance_records WHERE date = $1 AND scan_phase = $2 GROUP BY route_id`
	var rows []models.RouteBoardingCount
	if err := r.db.SelectContext(ctx, &rows, query, date, models.PhaseBoarding); err != nil {
		return nil, fmt.Errorf("boarding counts by route: %w", err)
	}
	return rows, nil
}

// List returns attendance rows matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance_records ar JOIN students st ON st.id = ar.student_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.RouteID != "" {
		where = append(where, fmt.Sprintf("ar.route_id = $%d", len(args)+1))
		args = append(args, filter.RouteID)
	}
	if filter.Date != "" {
		where = append(where, fmt.Sprintf("ar.date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Shift != "" {
		where = append(where, fmt.Sprintf("ar.shift = $%d", len(args)+1))
		args = append(args, filter.Shift)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Phase != "" {
		where = append(where, fmt.Sprintf("ar.scan_phase = $%d", len(args)+1))
		args = append(args, filter.Phase)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.credential_id, ar.credential_kind, ar.student_id, st.full_name AS student_name,
        ar.route_id, ar.date, ar.shift, ar.scan_phase, ar.scanned_at, ar.driver_id
        %s WHERE %s
        ORDER BY ar.scanned_at DESC
        LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// ManifestRows returns the export view of one route/day/shift.
func (r *AttendanceRepository) ManifestRows(ctx context.Context, routeID, date string, shift models.Shift) ([]models.AttendanceRecord, error) {
	query := `SELECT ar.id, ar.credential_id, ar.credential_kind, ar.student_id, st.full_name AS student_name,
        ar.route_id, ar.date, ar.shift, ar.scan_phase, ar.scanned_at, ar.driver_id
        FROM attendance_records ar JOIN students st ON st.id = ar.student_id
        WHERE ar.route_id = $1 AND ar.date = $2 AND ar.shift = $3
        ORDER BY st.full_name, ar.scan_phase`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, routeID, date, shift); err != nil {
		return nil, fmt.Errorf("manifest rows: %w", err)
	}
	return rows, nil
}

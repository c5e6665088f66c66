package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

// ScanRepository commits the write side of one accepted scan: the attendance
// record, the journey-log edge, and the credential's counter advance land in
// a single transaction, so a failed journey or counter write never leaves a
// stranded attendance row behind.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository constructs the repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// RecordBoarding persists a boarding scan atomically.
func (r *ScanRepository) RecordBoarding(ctx context.Context, rec *models.AttendanceRecord, log *models.JourneyLog, cred *models.Credential) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin boarding scan: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if err := insertAttendance(ctx, tx, rec); err != nil {
		return err
	}
	if err := upsertBoardingJourney(ctx, tx, log); err != nil {
		return err
	}
	if err := advanceScanCounter(ctx, tx, cred, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit boarding scan: %w", err)
	}
	commit = true
	return nil
}

// RecordReturn persists a return scan atomically.
func (r *ScanRepository) RecordReturn(ctx context.Context, rec *models.AttendanceRecord, cred *models.Credential) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return scan: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if err := insertAttendance(ctx, tx, rec); err != nil {
		return err
	}
	if err := markLeftForHome(ctx, tx, rec.StudentID, rec.Date, rec.ScannedAt); err != nil {
		return err
	}
	if err := advanceScanCounter(ctx, tx, cred, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit return scan: %w", err)
	}
	commit = true
	return nil
}

func advanceScanCounter(ctx context.Context, ext sqlx.ExtContext, cred *models.Credential, rec *models.AttendanceRecord) error {
	if cred.Kind == models.CredentialPass {
		return incrementPassScans(ctx, ext, cred.ID(), rec.Date, rec.ScannedAt)
	}
	return incrementTicketScans(ctx, ext, cred.ID(), cred.MaxScans(), rec.ScannedAt)
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

var passRowColumns = []string{"id", "student_id", "student_name", "route_id", "shift", "status",
	"valid_from", "valid_until", "scans_today", "scan_date", "max_scans_per_day", "created_at", "updated_at"}

var ticketRowColumns = []string{"id", "student_id", "student_name", "route_id", "shift",
	"travel_date", "trip_type", "status", "scans_used", "created_at", "updated_at"}

func TestCredentialRepositoryResolvePass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCredentialRepository(db)
	rows := sqlmock.NewRows(passRowColumns).
		AddRow("pass-1", "student-1", "Dina Rahma", "route-7", "morning", "approved",
			"2026-01-01", "2026-06-30", 0, nil, 2, time.Now(), time.Now())
	mock.ExpectQuery("SELECT bp.id, bp.student_id").
		WithArgs("pass-1").
		WillReturnRows(rows)

	cred, err := repo.Resolve(context.Background(), "pass-1")
	require.NoError(t, err)
	require.Equal(t, models.CredentialPass, cred.Kind)
	require.Equal(t, "Dina Rahma", cred.StudentName())
	require.Equal(t, 2, cred.MaxScans())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryResolveFallsBackToTickets(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCredentialRepository(db)
	mock.ExpectQuery("SELECT bp.id, bp.student_id").
		WithArgs("ticket-1").
		WillReturnError(sql.ErrNoRows)
	rows := sqlmock.NewRows(ticketRowColumns).
		AddRow("ticket-1", "student-2", "Raka Putra", "route-7", "morning",
			"2026-03-02", "single", "paid", 0, time.Now(), time.Now())
	mock.ExpectQuery("SELECT dt.id, dt.student_id").
		WithArgs("ticket-1").
		WillReturnRows(rows)

	cred, err := repo.Resolve(context.Background(), "ticket-1")
	require.NoError(t, err)
	require.Equal(t, models.CredentialTicket, cred.Kind)
	require.Equal(t, 1, cred.MaxScans())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryResolveUnknownID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCredentialRepository(db)
	mock.ExpectQuery("SELECT bp.id, bp.student_id").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT dt.id, dt.student_id").WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialIncrementPassScans(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bus_passes")).
		WithArgs("2026-03-02", sqlmock.AnyArg(), "pass-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, incrementPassScans(context.Background(), db, "pass-1", "2026-03-02", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialIncrementTicketScans(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE day_tickets")).
		WithArgs(1, string(models.TicketUsed), sqlmock.AnyArg(), "ticket-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, incrementTicketScans(context.Background(), db, "ticket-1", 1, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryActiveForDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCredentialRepository(db)
	passRows := sqlmock.NewRows(passRowColumns).
		AddRow("pass-1", "student-1", "Dina Rahma", "route-7", "morning", "approved",
			"2026-01-01", "2026-06-30", 0, nil, 2, time.Now(), time.Now())
	mock.ExpectQuery("SELECT bp.id, bp.student_id").
		WithArgs(string(models.PassApproved), "2026-03-02").
		WillReturnRows(passRows)
	ticketRows := sqlmock.NewRows(ticketRowColumns).
		AddRow("ticket-1", "student-2", "Raka Putra", "route-7", "morning",
			"2026-03-02", "round", "paid", 0, time.Now(), time.Now())
	mock.ExpectQuery("SELECT dt.id, dt.student_id").
		WithArgs(string(models.TicketPaid), string(models.TicketUsed), "2026-03-02").
		WillReturnRows(ticketRows)

	creds, err := repo.ActiveForDate(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	require.Equal(t, models.CredentialPass, creds[0].Kind)
	require.Equal(t, models.CredentialTicket, creds[1].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

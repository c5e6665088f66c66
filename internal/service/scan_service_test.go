package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/internal/shiftwindow"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	"github.com/noah-isme/campus-transit-api/pkg/config"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/token"
)

type mockScanCredentialRepo struct {
	credential *models.Credential
	resolveErr error
}

func (m *mockScanCredentialRepo) Resolve(ctx context.Context, id string) (*models.Credential, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.credential, nil
}

type mockScanAttendanceRepo struct {
	scansToday int
	duplicate  bool
}

func (m *mockScanAttendanceRepo) Exists(ctx context.Context, credentialID, date string, phase models.ScanPhase) (bool, error) {
	return m.duplicate, nil
}

func (m *mockScanAttendanceRepo) CountForCredential(ctx context.Context, credentialID, date string) (int, error) {
	return m.scansToday, nil
}

type mockScanLedger struct {
	boardErr       error
	returnErr      error
	boardings      []*models.AttendanceRecord
	journeys       []*models.JourneyLog
	returns        []*models.AttendanceRecord
	passIncrements int
	tickIncrements int
}

func (m *mockScanLedger) RecordBoarding(ctx context.Context, rec *models.AttendanceRecord, log *models.JourneyLog, cred *models.Credential) error {
	if m.boardErr != nil {
		return m.boardErr
	}
	m.boardings = append(m.boardings, rec)
	m.journeys = append(m.journeys, log)
	m.count(cred)
	return nil
}

func (m *mockScanLedger) RecordReturn(ctx context.Context, rec *models.AttendanceRecord, cred *models.Credential) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.returns = append(m.returns, rec)
	m.count(cred)
	return nil
}

func (m *mockScanLedger) count(cred *models.Credential) {
	if cred.Kind == models.CredentialPass {
		m.passIncrements++
	} else {
		m.tickIncrements++
	}
}

type mockScanCheckpointRepo struct {
	checkpoint *models.TripCheckpoint
	err        error
}

func (m *mockScanCheckpointRepo) GetForDriver(ctx context.Context, driverID, date string, shift models.Shift) (*models.TripCheckpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.checkpoint, nil
}

type mockAnalyticsRecorder struct {
	scans int
	err   error
}

func (m *mockAnalyticsRecorder) RecordScan(ctx context.Context, routeID, date string, shift models.Shift, phase models.ScanPhase) error {
	m.scans++
	return m.err
}

func testPolicy(t *testing.T) *shiftwindow.Policy {
	t.Helper()
	policy, err := shiftwindow.NewPolicy(config.ShiftsConfig{
		Morning:   config.ShiftWindowConfig{BoardingDeadline: "07:30", ReturnEligibleFrom: "15:00"},
		Afternoon: config.ShiftWindowConfig{BoardingDeadline: "12:30", ReturnEligibleFrom: "20:00"},
	})
	require.NoError(t, err)
	return policy
}

func testPassCredential() *models.Credential {
	return &models.Credential{
		Kind: models.CredentialPass,
		Pass: &models.BusPass{
			ID:             "pass-1",
			StudentID:      "student-1",
			StudentName:    "Dina Rahma",
			RouteID:        "route-7",
			Shift:          models.ShiftMorning,
			Status:         models.PassApproved,
			ValidFrom:      "2026-01-01",
			ValidUntil:     "2026-06-30",
			MaxScansPerDay: 2,
		},
	}
}

type scanFixture struct {
	svc         *ScanService
	codec       *token.Codec
	credentials *mockScanCredentialRepo
	attendance  *mockScanAttendanceRepo
	ledger      *mockScanLedger
	checkpoints *mockScanCheckpointRepo
	analytics   *mockAnalyticsRecorder
	clk         *clock.Fixed
	driver      models.DriverClaims
}

func newScanFixture(t *testing.T, now time.Time) *scanFixture {
	t.Helper()
	f := &scanFixture{
		codec:       token.NewCodec("scan-test-secret", "CTP"),
		credentials: &mockScanCredentialRepo{credential: testPassCredential()},
		attendance:  &mockScanAttendanceRepo{},
		ledger:      &mockScanLedger{},
		checkpoints: &mockScanCheckpointRepo{checkpoint: &models.TripCheckpoint{Phase: models.PhaseCheckpointBoarding}},
		analytics:   &mockAnalyticsRecorder{},
		clk:         clock.NewFixed(now),
		driver:      models.DriverClaims{DriverID: "driver-1", RouteID: "route-7", Shift: models.ShiftMorning},
	}
	f.svc = NewScanService(f.codec, testPolicy(t), f.credentials, f.attendance, f.ledger, f.checkpoints, f.analytics, nil, f.clk, zap.NewNop())
	return f
}

func (f *scanFixture) token(t *testing.T) string {
	t.Helper()
	raw, err := f.codec.Sign("pass-1", "student-1", f.clk.Now().Add(24*time.Hour))
	require.NoError(t, err)
	return raw
}

func morning(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestScanBoardingAccepted(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))

	result, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, models.PhaseBoarding, result.ScanPhase)
	assert.Equal(t, 1, result.ScanCount)
	assert.Equal(t, 2, result.MaxScans)
	assert.Equal(t, "Dina Rahma", result.Student.Name)

	require.Len(t, f.ledger.boardings, 1)
	assert.Equal(t, "2026-03-02", f.ledger.boardings[0].Date)
	assert.Equal(t, "driver-1", f.ledger.boardings[0].DriverID)
	require.Len(t, f.ledger.journeys, 1)
	assert.Equal(t, models.JourneyInProgress, f.ledger.journeys[0].Status)
	assert.Equal(t, 1, f.ledger.passIncrements)
	assert.Equal(t, 1, f.analytics.scans)
}

func TestScanReturnAccepted(t *testing.T) {
	f := newScanFixture(t, morning(15, 30))
	f.attendance.scansToday = 1
	f.checkpoints.checkpoint.Phase = models.PhaseCheckpointReturning

	result, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseReturn, result.ScanPhase)
	assert.Equal(t, 2, result.ScanCount)
	assert.Empty(t, f.ledger.boardings)
	require.Len(t, f.ledger.returns, 1)
	assert.Equal(t, "student-1", f.ledger.returns[0].StudentID)
}

func TestScanTamperedTokenRejected(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	raw := f.token(t)
	tampered := raw[:len(raw)-1] + "0"
	if tampered == raw {
		tampered = raw[:len(raw)-1] + "1"
	}

	_, err := f.svc.Scan(context.Background(), f.driver, tampered)
	assert.True(t, appErrors.Is(err, appErrors.ErrBadSignature))
	assert.Empty(t, f.ledger.boardings)
}

func TestScanCredentialNotFound(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.credentials.resolveErr = sql.ErrNoRows

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrCredentialInactive))
}

func TestScanRouteMismatch(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.driver.RouteID = "route-9"

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrRouteMismatch))
}

func TestScanShiftMismatch(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.driver.Shift = models.ShiftAfternoon

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrShiftMismatch))
}

func TestScanBoardingAfterDeadlineRejected(t *testing.T) {
	f := newScanFixture(t, morning(7, 31))

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWindow))
}

func TestScanReturnBeforeEligibleRejected(t *testing.T) {
	f := newScanFixture(t, morning(14, 59))
	f.attendance.scansToday = 1
	f.checkpoints.checkpoint.Phase = models.PhaseCheckpointReturning

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWindow))
}

func TestScanDailyLimitReached(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.attendance.scansToday = 2

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrDailyLimitReached))
}

func TestScanSingleTripTicketUsed(t *testing.T) {
	f := newScanFixture(t, morning(15, 30))
	f.attendance.scansToday = 1
	f.credentials.credential = &models.Credential{
		Kind: models.CredentialTicket,
		Ticket: &models.DayTicket{
			ID:         "pass-1",
			StudentID:  "student-1",
			RouteID:    "route-7",
			Shift:      models.ShiftMorning,
			TravelDate: "2026-03-02",
			TripType:   models.TicketSingle,
			Status:     models.TicketPaid,
		},
	}

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrSingleTripUsed))
}

func TestScanSpentSingleTicketReportsUsedNotInactive(t *testing.T) {
	// Once the counter flips the ticket's status to used, a rescan must still
	// report the single-trip code, not a generic inactive credential.
	f := newScanFixture(t, morning(15, 30))
	f.attendance.scansToday = 1
	f.credentials.credential = &models.Credential{
		Kind: models.CredentialTicket,
		Ticket: &models.DayTicket{
			ID:         "pass-1",
			StudentID:  "student-1",
			RouteID:    "route-7",
			Shift:      models.ShiftMorning,
			TravelDate: "2026-03-02",
			TripType:   models.TicketSingle,
			Status:     models.TicketUsed,
			ScansUsed:  1,
		},
	}

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrSingleTripUsed))
}

func TestScanSpentRoundTicketReportsDailyLimit(t *testing.T) {
	f := newScanFixture(t, morning(15, 30))
	f.attendance.scansToday = 2
	f.credentials.credential = &models.Credential{
		Kind: models.CredentialTicket,
		Ticket: &models.DayTicket{
			ID:         "pass-1",
			StudentID:  "student-1",
			RouteID:    "route-7",
			Shift:      models.ShiftMorning,
			TravelDate: "2026-03-02",
			TripType:   models.TicketRound,
			Status:     models.TicketUsed,
			ScansUsed:  2,
		},
	}

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrDailyLimitReached))
}

func TestScanBeforeShiftStarted(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.checkpoints.err = sql.ErrNoRows

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrShiftNotStarted))
}

func TestScanClosedWhileAtUniversity(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.checkpoints.checkpoint.Phase = models.PhaseCheckpointAtUniversity

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrScanningClosed))
}

func TestScanDuplicatePhaseRejected(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.attendance.duplicate = true

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicatePhase))
	assert.Empty(t, f.ledger.boardings)
}

func TestScanExpiredCredential(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	raw, err := f.codec.Sign("pass-1", "student-1", f.clk.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Scan(context.Background(), f.driver, raw)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExpired))
}

func TestScanInactivePassRejected(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.credentials.credential.Pass.Status = models.PassPending

	_, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	assert.True(t, appErrors.Is(err, appErrors.ErrCredentialInactive))
}

func TestScanAnalyticsFailureDoesNotBlock(t *testing.T) {
	f := newScanFixture(t, morning(7, 0))
	f.analytics.err = context.DeadlineExceeded

	result, err := f.svc.Scan(context.Background(), f.driver, f.token(t))
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

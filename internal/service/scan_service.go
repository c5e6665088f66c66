package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/internal/shiftwindow"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/token"
)

type scanCredentialRepository interface {
	Resolve(ctx context.Context, id string) (*models.Credential, error)
}

type scanAttendanceRepository interface {
	Exists(ctx context.Context, credentialID, date string, phase models.ScanPhase) (bool, error)
	CountForCredential(ctx context.Context, credentialID, date string) (int, error)
}

// scanLedger commits an accepted scan's attendance record, journey edge, and
// credential counter as one unit.
type scanLedger interface {
	RecordBoarding(ctx context.Context, rec *models.AttendanceRecord, log *models.JourneyLog, cred *models.Credential) error
	RecordReturn(ctx context.Context, rec *models.AttendanceRecord, cred *models.Credential) error
}

type scanCheckpointRepository interface {
	GetForDriver(ctx context.Context, driverID, date string, shift models.Shift) (*models.TripCheckpoint, error)
}

type scanAnalyticsRecorder interface {
	RecordScan(ctx context.Context, routeID, date string, shift models.Shift, phase models.ScanPhase) error
}

// ScanService turns one raw scan into at most one attendance record plus the
// matching journey-log update, or a typed rejection.
type ScanService struct {
	codec       *token.Codec
	policy      *shiftwindow.Policy
	credentials scanCredentialRepository
	attendance  scanAttendanceRepository
	ledger      scanLedger
	checkpoints scanCheckpointRepository
	analytics   scanAnalyticsRecorder
	metrics     *MetricsService
	clock       clock.Clock
	logger      *zap.Logger
}

// NewScanService constructs the scan intake pipeline.
func NewScanService(
	codec *token.Codec,
	policy *shiftwindow.Policy,
	credentials scanCredentialRepository,
	attendance scanAttendanceRepository,
	ledger scanLedger,
	checkpoints scanCheckpointRepository,
	analytics scanAnalyticsRecorder,
	metrics *MetricsService,
	clk clock.Clock,
	logger *zap.Logger,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		codec:       codec,
		policy:      policy,
		credentials: credentials,
		attendance:  attendance,
		ledger:      ledger,
		checkpoints: checkpoints,
		analytics:   analytics,
		metrics:     metrics,
		clock:       clk,
		logger:      logger,
	}
}

// Scan processes one boarding-credential scan by the given driver.
func (s *ScanService) Scan(ctx context.Context, driver models.DriverClaims, rawToken string) (*models.ScanResult, error) {
	result, err := s.scan(ctx, driver, rawToken)
	if s.metrics != nil {
		outcome := "accepted"
		if err != nil {
			outcome = appErrors.FromError(err).Code
		}
		s.metrics.ObserveScan(outcome)
	}
	return result, err
}

func (s *ScanService) scan(ctx context.Context, driver models.DriverClaims, rawToken string) (*models.ScanResult, error) {
	// One authoritative instant for the whole pipeline.
	now := s.clock.Now()
	today := clock.DateOf(now)

	claims, err := s.codec.Verify(rawToken, now)
	if err != nil {
		return nil, err
	}

	cred, err := s.credentials.Resolve(ctx, claims.CredentialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCredentialInactive, "credential not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve credential")
	}
	if cred.StudentID() != claims.StudentID {
		return nil, appErrors.Clone(appErrors.ErrCredentialInactive, "credential does not belong to the presented student")
	}
	if !cred.ActiveOn(today) {
		// A ticket spent earlier today reports its own terminal code rather
		// than a generic inactive rejection.
		if cred.Kind == models.CredentialTicket && cred.Ticket.Status == models.TicketUsed && cred.Ticket.TravelDate == today {
			if cred.Ticket.TripType == models.TicketSingle {
				return nil, appErrors.ErrSingleTripUsed
			}
			return nil, appErrors.ErrDailyLimitReached
		}
		return nil, appErrors.Clonef(appErrors.ErrCredentialInactive, "%s credential is not active today", cred.Kind)
	}

	if cred.RouteID() != driver.RouteID {
		return nil, appErrors.Clonef(appErrors.ErrRouteMismatch, "credential is for route %s, driver covers route %s", cred.RouteID(), driver.RouteID)
	}
	if cred.Shift() != driver.Shift {
		return nil, appErrors.Clonef(appErrors.ErrShiftMismatch, "credential is for the %s shift, driver covers the %s shift", cred.Shift(), driver.Shift)
	}

	scansToday, err := s.attendance.CountForCredential(ctx, cred.ID(), today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count scans")
	}

	// Single-trip tickets never get a second scan, whatever the clock says.
	if cred.Kind == models.CredentialTicket && cred.Ticket.TripType == models.TicketSingle && scansToday >= 1 {
		return nil, appErrors.ErrSingleTripUsed
	}

	decision := s.policy.Evaluate(cred.Shift(), scansToday, now)
	if !decision.Allowed {
		if scansToday >= cred.MaxScans() || decision.Phase == "" {
			return nil, appErrors.ErrDailyLimitReached
		}
		return nil, appErrors.Clone(appErrors.ErrOutsideWindow, decision.Reason)
	}

	if err := s.checkTripPhase(ctx, driver, today, decision.Phase); err != nil {
		return nil, err
	}

	duplicate, err := s.attendance.Exists(ctx, cred.ID(), today, decision.Phase)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicate scan")
	}
	if duplicate {
		return nil, appErrors.Clonef(appErrors.ErrDuplicatePhase, "attendance already recorded for phase %s today", decision.Phase)
	}

	record := &models.AttendanceRecord{
		CredentialID:   cred.ID(),
		CredentialKind: cred.Kind,
		StudentID:      cred.StudentID(),
		RouteID:        cred.RouteID(),
		Date:           today,
		Shift:          cred.Shift(),
		ScanPhase:      decision.Phase,
		ScannedAt:      now,
		DriverID:       driver.DriverID,
	}
	// The ledger commits the record, journey edge, and counter as one
	// transaction; the unique constraint is the real arbiter under
	// concurrency, and a losing insert comes back as ErrDuplicatePhase.
	switch decision.Phase {
	case models.PhaseBoarding:
		onboarded := now
		err = s.ledger.RecordBoarding(ctx, record, &models.JourneyLog{
			StudentID:      cred.StudentID(),
			RouteID:        cred.RouteID(),
			Shift:          cred.Shift(),
			CredentialID:   cred.ID(),
			CredentialKind: cred.Kind,
			Date:           today,
			Status:         models.JourneyInProgress,
			OnboardedAt:    &onboarded,
			UpdatedAt:      now,
		}, cred)
	case models.PhaseReturn:
		err = s.ledger.RecordReturn(ctx, record, cred)
	}
	if err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicatePhase) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record scan")
	}

	if s.analytics != nil {
		if err := s.analytics.RecordScan(ctx, cred.RouteID(), today, cred.Shift(), decision.Phase); err != nil {
			s.logger.Warn("failed to record route analytics", zap.Error(err), zap.String("route_id", cred.RouteID()))
		}
	}

	return &models.ScanResult{
		Verified:       true,
		CredentialKind: cred.Kind,
		Student:        models.ScanStudent{ID: cred.StudentID(), Name: cred.StudentName()},
		RouteID:        cred.RouteID(),
		Shift:          cred.Shift(),
		ScanPhase:      decision.Phase,
		ScanCount:      scansToday + 1,
		MaxScans:       cred.MaxScans(),
	}, nil
}

// checkTripPhase gates scans on the driver's checkpoint state: boarding scans
// need an in-progress boarding leg, return scans need the return leg. The
// at_university phase deliberately matches neither.
func (s *ScanService) checkTripPhase(ctx context.Context, driver models.DriverClaims, today string, phase models.ScanPhase) error {
	cp, err := s.checkpoints.GetForDriver(ctx, driver.DriverID, today, driver.Shift)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrShiftNotStarted
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trip checkpoint")
	}

	switch phase {
	case models.PhaseBoarding:
		if cp.Phase != models.PhaseCheckpointBoarding {
			return appErrors.Clonef(appErrors.ErrScanningClosed, "boarding scans are closed while the trip is %s", cp.Phase)
		}
	case models.PhaseReturn:
		if cp.Phase != models.PhaseCheckpointReturning {
			return appErrors.Clonef(appErrors.ErrScanningClosed, "return scans are closed while the trip is %s", cp.Phase)
		}
	}
	return nil
}

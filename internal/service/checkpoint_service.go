package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

type checkpointRepository interface {
	Create(ctx context.Context, cp *models.TripCheckpoint) error
	GetForDriver(ctx context.Context, driverID, date string, shift models.Shift) (*models.TripCheckpoint, error)
	AdvanceToDestination(ctx context.Context, cp *models.TripCheckpoint, odometer float64, at time.Time) (int64, error)
	AdvanceToReturning(ctx context.Context, id string, odometer float64, at time.Time) error
	Complete(ctx context.Context, cp *models.TripCheckpoint, odometer, totalKm float64, at time.Time) (int64, error)
}

// CheckpointService drives the four-step trip state machine. The two arrival
// transitions bulk-flip every affected student's journey phase inside the
// same transaction as the phase change, never per-scan loops.
type CheckpointService struct {
	checkpoints checkpointRepository
	metrics     *MetricsService
	clock       clock.Clock
	logger      *zap.Logger
}

// NewCheckpointService constructs the checkpoint service.
func NewCheckpointService(checkpoints checkpointRepository, metrics *MetricsService, clk clock.Clock, logger *zap.Logger) *CheckpointService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointService{checkpoints: checkpoints, metrics: metrics, clock: clk, logger: logger}
}

// StartShift opens the day's checkpoint record and enables boarding scans.
func (s *CheckpointService) StartShift(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error) {
	now := s.clock.Now()
	if odometer <= 0 {
		return nil, appErrors.Clone(appErrors.ErrOdometerRegression, "starting odometer must be greater than 0")
	}

	cp := &models.TripCheckpoint{
		DriverID:      driver.DriverID,
		RouteID:       driver.RouteID,
		Shift:         driver.Shift,
		Date:          clock.DateOf(now),
		Phase:         models.PhaseCheckpointBoarding,
		StartOdometer: odometer,
		StartAt:       now,
	}
	if err := s.checkpoints.Create(ctx, cp); err != nil {
		return nil, err
	}
	s.observe("start_shift")

	return &models.CheckpointResult{Checkpoint: cp, Phase: cp.Phase}, nil
}

// ReachedDestination closes boarding and stamps arrival on every onboarded
// student's journey log.
func (s *CheckpointService) ReachedDestination(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error) {
	now := s.clock.Now()
	cp, err := s.loadToday(ctx, driver, now)
	if err != nil {
		return nil, err
	}
	if cp.Phase != models.PhaseCheckpointBoarding {
		return nil, appErrors.Clonef(appErrors.ErrInvalidPhaseTransition, "reached-destination requires phase %s, trip is %s", models.PhaseCheckpointBoarding, cp.Phase)
	}
	if odometer < cp.StartOdometer {
		return nil, appErrors.Clonef(appErrors.ErrOdometerRegression, "odometer must be at least %.1f", cp.StartOdometer)
	}

	updated, err := s.checkpoints.AdvanceToDestination(ctx, cp, odometer, now)
	if err != nil {
		return nil, err
	}
	s.observe("reached_destination")

	cp.Phase = models.PhaseCheckpointAtUniversity
	cp.DestinationOdometer = &odometer
	cp.DestinationAt = &now
	return &models.CheckpointResult{Checkpoint: cp, Phase: cp.Phase, StudentsUpdated: updated}, nil
}

// StartReturn opens return scanning. Equal odometer readings are legal: the
// bus drove nothing while parked at the destination.
func (s *CheckpointService) StartReturn(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error) {
	now := s.clock.Now()
	cp, err := s.loadToday(ctx, driver, now)
	if err != nil {
		return nil, err
	}
	if cp.Phase != models.PhaseCheckpointAtUniversity {
		return nil, appErrors.Clonef(appErrors.ErrInvalidPhaseTransition, "start-return requires phase %s, trip is %s", models.PhaseCheckpointAtUniversity, cp.Phase)
	}
	if cp.DestinationOdometer == nil || odometer < *cp.DestinationOdometer {
		minimum := cp.StartOdometer
		if cp.DestinationOdometer != nil {
			minimum = *cp.DestinationOdometer
		}
		return nil, appErrors.Clonef(appErrors.ErrOdometerRegression, "odometer must be at least %.1f", minimum)
	}

	if err := s.checkpoints.AdvanceToReturning(ctx, cp.ID, odometer, now); err != nil {
		return nil, err
	}
	s.observe("start_return")

	cp.Phase = models.PhaseCheckpointReturning
	cp.ReturnOdometer = &odometer
	cp.ReturnAt = &now
	return &models.CheckpointResult{Checkpoint: cp, Phase: cp.Phase}, nil
}

// ReachedHome completes the trip: the odometer must have strictly advanced,
// every return-scanned student's journey is completed, and the trip distance
// is recorded.
func (s *CheckpointService) ReachedHome(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error) {
	now := s.clock.Now()
	cp, err := s.loadToday(ctx, driver, now)
	if err != nil {
		return nil, err
	}
	if cp.Phase != models.PhaseCheckpointReturning {
		return nil, appErrors.Clonef(appErrors.ErrInvalidPhaseTransition, "reached-home requires phase %s, trip is %s", models.PhaseCheckpointReturning, cp.Phase)
	}
	if cp.ReturnOdometer == nil || odometer <= *cp.ReturnOdometer {
		minimum := cp.StartOdometer
		if cp.ReturnOdometer != nil {
			minimum = *cp.ReturnOdometer
		}
		return nil, appErrors.Clonef(appErrors.ErrOdometerRegression, "odometer must be greater than %.1f", minimum)
	}

	totalKm := odometer - cp.StartOdometer
	updated, err := s.checkpoints.Complete(ctx, cp, odometer, totalKm, now)
	if err != nil {
		return nil, err
	}
	s.observe("reached_home")

	cp.Phase = models.PhaseCheckpointCompleted
	cp.HomeOdometer = &odometer
	cp.HomeAt = &now
	cp.TotalKm = &totalKm
	return &models.CheckpointResult{Checkpoint: cp, Phase: cp.Phase, StudentsUpdated: updated, TotalKmTraveled: &totalKm}, nil
}

// Today returns the driver's current checkpoint record.
func (s *CheckpointService) Today(ctx context.Context, driver models.DriverClaims) (*models.TripCheckpoint, error) {
	return s.loadToday(ctx, driver, s.clock.Now())
}

func (s *CheckpointService) loadToday(ctx context.Context, driver models.DriverClaims, now time.Time) (*models.TripCheckpoint, error) {
	cp, err := s.checkpoints.GetForDriver(ctx, driver.DriverID, clock.DateOf(now), driver.Shift)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrShiftNotStarted
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trip checkpoint")
	}
	return cp, nil
}

func (s *CheckpointService) observe(transition string) {
	if s.metrics != nil {
		s.metrics.ObserveCheckpoint(transition)
	}
}

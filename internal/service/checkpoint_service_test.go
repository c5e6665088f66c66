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
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

type mockCheckpointRepo struct {
	checkpoint         *models.TripCheckpoint
	getErr             error
	createErr          error
	destinationUpdates int64
	homeUpdates        int64
}

func (m *mockCheckpointRepo) Create(ctx context.Context, cp *models.TripCheckpoint) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp.ID = "cp-1"
	m.checkpoint = cp
	return nil
}

func (m *mockCheckpointRepo) GetForDriver(ctx context.Context, driverID, date string, shift models.Shift) (*models.TripCheckpoint, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.checkpoint == nil {
		return nil, sql.ErrNoRows
	}
	return m.checkpoint, nil
}

func (m *mockCheckpointRepo) AdvanceToDestination(ctx context.Context, cp *models.TripCheckpoint, odometer float64, at time.Time) (int64, error) {
	m.checkpoint.Phase = models.PhaseCheckpointAtUniversity
	m.checkpoint.DestinationOdometer = &odometer
	m.checkpoint.DestinationAt = &at
	return m.destinationUpdates, nil
}

func (m *mockCheckpointRepo) AdvanceToReturning(ctx context.Context, id string, odometer float64, at time.Time) error {
	m.checkpoint.Phase = models.PhaseCheckpointReturning
	m.checkpoint.ReturnOdometer = &odometer
	m.checkpoint.ReturnAt = &at
	return nil
}

func (m *mockCheckpointRepo) Complete(ctx context.Context, cp *models.TripCheckpoint, odometer, totalKm float64, at time.Time) (int64, error) {
	m.checkpoint.Phase = models.PhaseCheckpointCompleted
	m.checkpoint.HomeOdometer = &odometer
	m.checkpoint.TotalKm = &totalKm
	m.checkpoint.HomeAt = &at
	return m.homeUpdates, nil
}

func newCheckpointFixture(now time.Time) (*CheckpointService, *mockCheckpointRepo, models.DriverClaims) {
	repo := &mockCheckpointRepo{destinationUpdates: 12, homeUpdates: 11}
	svc := NewCheckpointService(repo, nil, clock.NewFixed(now), zap.NewNop())
	driver := models.DriverClaims{DriverID: "driver-1", RouteID: "route-7", Shift: models.ShiftMorning}
	return svc, repo, driver
}

func TestCheckpointFullTrip(t *testing.T) {
	svc, repo, driver := newCheckpointFixture(morning(6, 30))
	ctx := context.Background()

	started, err := svc.StartShift(ctx, driver, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCheckpointBoarding, started.Phase)
	assert.Equal(t, "2026-03-02", repo.checkpoint.Date)

	dest, err := svc.ReachedDestination(ctx, driver, 1045)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCheckpointAtUniversity, dest.Phase)
	assert.Equal(t, int64(12), dest.StudentsUpdated)

	// No driving between arrival and return departure is legal.
	ret, err := svc.StartReturn(ctx, driver, 1045)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCheckpointReturning, ret.Phase)

	home, err := svc.ReachedHome(ctx, driver, 1090)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCheckpointCompleted, home.Phase)
	assert.Equal(t, int64(11), home.StudentsUpdated)
	require.NotNil(t, home.TotalKmTraveled)
	assert.InDelta(t, 90.0, *home.TotalKmTraveled, 0.001)
}

func TestCheckpointStartShiftRejectsZeroOdometer(t *testing.T) {
	svc, _, driver := newCheckpointFixture(morning(6, 30))

	_, err := svc.StartShift(context.Background(), driver, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrOdometerRegression))
}

func TestCheckpointTransitionsRequireOrder(t *testing.T) {
	svc, repo, driver := newCheckpointFixture(morning(6, 30))
	ctx := context.Background()

	_, err := svc.StartShift(ctx, driver, 1000)
	require.NoError(t, err)

	// Skipping straight to the return leg from boarding is rejected.
	_, err = svc.StartReturn(ctx, driver, 1045)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidPhaseTransition))

	_, err = svc.ReachedHome(ctx, driver, 1090)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidPhaseTransition))

	_, err = svc.ReachedDestination(ctx, driver, 1045)
	require.NoError(t, err)

	// Replaying a finished transition is rejected too.
	_, err = svc.ReachedDestination(ctx, driver, 1046)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidPhaseTransition))
	assert.Equal(t, models.PhaseCheckpointAtUniversity, repo.checkpoint.Phase)
}

func TestCheckpointOdometerRules(t *testing.T) {
	svc, _, driver := newCheckpointFixture(morning(6, 30))
	ctx := context.Background()

	_, err := svc.StartShift(ctx, driver, 1000)
	require.NoError(t, err)

	_, err = svc.ReachedDestination(ctx, driver, 999)
	assert.True(t, appErrors.Is(err, appErrors.ErrOdometerRegression))

	// Arriving with an unchanged reading is allowed.
	_, err = svc.ReachedDestination(ctx, driver, 1000)
	require.NoError(t, err)

	_, err = svc.StartReturn(ctx, driver, 999)
	assert.True(t, appErrors.Is(err, appErrors.ErrOdometerRegression))

	_, err = svc.StartReturn(ctx, driver, 1000)
	require.NoError(t, err)

	// The home reading must strictly advance past the return reading.
	_, err = svc.ReachedHome(ctx, driver, 1000)
	assert.True(t, appErrors.Is(err, appErrors.ErrOdometerRegression))

	home, err := svc.ReachedHome(ctx, driver, 1080)
	require.NoError(t, err)
	require.NotNil(t, home.TotalKmTraveled)
	assert.InDelta(t, 80.0, *home.TotalKmTraveled, 0.001)
}

func TestCheckpointTransitionsWithoutShift(t *testing.T) {
	svc, _, driver := newCheckpointFixture(morning(6, 30))

	_, err := svc.ReachedDestination(context.Background(), driver, 1045)
	assert.True(t, appErrors.Is(err, appErrors.ErrShiftNotStarted))

	_, err = svc.Today(context.Background(), driver)
	assert.True(t, appErrors.Is(err, appErrors.ErrShiftNotStarted))
}

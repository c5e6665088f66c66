package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

type appliedScore struct {
	studentID   string
	points      int
	reliability int
}

type mockForecastIntentRepo struct {
	intents   []models.RideIntent
	counts    []models.RouteIntentCount
	settled   map[string]bool
	finalized []string
	scores    []appliedScore
}

func (m *mockForecastIntentRepo) ListUnprocessed(ctx context.Context, date string) ([]models.RideIntent, error) {
	return m.intents, nil
}

func (m *mockForecastIntentRepo) Finalize(ctx context.Context, id string, boarded bool, pointsDelta, reliabilityDelta int, at time.Time) (bool, error) {
	if m.settled[id] {
		return false, nil
	}
	m.finalized = append(m.finalized, id)
	return true, nil
}

func (m *mockForecastIntentRepo) ApplyScore(ctx context.Context, studentID string, pointsDelta, reliabilityDelta int) error {
	m.scores = append(m.scores, appliedScore{studentID: studentID, points: pointsDelta, reliability: reliabilityDelta})
	return nil
}

func (m *mockForecastIntentRepo) CountsByRoute(ctx context.Context, date string) ([]models.RouteIntentCount, error) {
	return m.counts, nil
}

type recordedActual struct {
	routeID  string
	actual   int
	accuracy *int
}

type mockForecastRepo struct {
	upserts  []*models.DemandForecast
	existing []models.DemandForecast
	actuals  []recordedActual
}

func (m *mockForecastRepo) Upsert(ctx context.Context, f *models.DemandForecast) error {
	m.upserts = append(m.upserts, f)
	return nil
}

func (m *mockForecastRepo) RecordActuals(ctx context.Context, routeID, date string, actual int, accuracy *int, at time.Time) error {
	m.actuals = append(m.actuals, recordedActual{routeID: routeID, actual: actual, accuracy: accuracy})
	return nil
}

func (m *mockForecastRepo) ListByDate(ctx context.Context, date, routeID string) ([]models.DemandForecast, error) {
	return m.existing, nil
}

func (m *mockForecastRepo) ForDate(ctx context.Context, date string) ([]models.DemandForecast, error) {
	return m.existing, nil
}

type mockForecastAttendanceRepo struct {
	boarded       map[string]bool
	routeBoarding []models.RouteBoardingCount
}

func (m *mockForecastAttendanceRepo) HasBoarding(ctx context.Context, studentID, routeID, date string) (bool, error) {
	return m.boarded[studentID], nil
}

func (m *mockForecastAttendanceRepo) BoardingCountsByRoute(ctx context.Context, date string) ([]models.RouteBoardingCount, error) {
	return m.routeBoarding, nil
}

type mockForecastRouteRepo struct {
	routes map[string]*models.Route
}

func (m *mockForecastRouteRepo) Get(ctx context.Context, id string) (*models.Route, error) {
	if route, ok := m.routes[id]; ok {
		return route, nil
	}
	return nil, context.Canceled
}

func newForecastFixture(now time.Time) (*ForecastService, *mockForecastIntentRepo, *mockForecastRepo, *mockForecastAttendanceRepo) {
	intents := &mockForecastIntentRepo{settled: map[string]bool{}}
	forecasts := &mockForecastRepo{}
	attendance := &mockForecastAttendanceRepo{boarded: map[string]bool{}}
	routes := &mockForecastRouteRepo{routes: map[string]*models.Route{
		"route-7": {ID: "route-7", BusCapacity: 40},
		"route-8": {ID: "route-8", BusCapacity: 0},
	}}
	svc := NewForecastService(intents, forecasts, attendance, routes, clock.NewFixed(now), zap.NewNop())
	return svc, intents, forecasts, attendance
}

func TestBuildForecastsRecommendsBuses(t *testing.T) {
	svc, intents, forecasts, _ := newForecastFixture(morning(22, 0))
	intents.counts = []models.RouteIntentCount{
		{RouteID: "route-7", YesCount: 95, NoCount: 12},
		{RouteID: "route-8", YesCount: 0, NoCount: 4},
	}

	built, err := svc.BuildForecasts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, built)
	require.Len(t, forecasts.upserts, 2)

	first := forecasts.upserts[0]
	assert.Equal(t, "2026-03-03", first.Date)
	assert.Equal(t, 95, first.ExpectedPassengers)
	assert.Equal(t, 3, first.RecommendedBuses)
	assert.Equal(t, 40, first.BusCapacity)

	// Zero declared riders still keeps one bus on the route; a route with no
	// configured capacity falls back to the default.
	second := forecasts.upserts[1]
	assert.Equal(t, 1, second.RecommendedBuses)
	assert.Equal(t, DefaultBusCapacity, second.BusCapacity)
}

func intent(id, studentID string, choice models.IntentChoice) models.RideIntent {
	return models.RideIntent{
		ID:         id,
		StudentID:  studentID,
		RouteID:    "route-7",
		Shift:      models.ShiftMorning,
		TravelDate: "2026-03-02",
		Intent:     choice,
	}
}

func TestReconcileScoresIntents(t *testing.T) {
	svc, intents, _, attendance := newForecastFixture(morning(23, 30))
	intents.intents = []models.RideIntent{
		intent("i-1", "kept-yes", models.IntentYes),
		intent("i-2", "kept-no", models.IntentNo),
		intent("i-3", "broken-yes", models.IntentYes),
		intent("i-4", "surprise-rider", models.IntentNo),
	}
	attendance.boarded = map[string]bool{"kept-yes": true, "surprise-rider": true}

	processed, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, processed)

	// The neutral NO-but-boarded case settles the intent without touching scores.
	require.Len(t, intents.scores, 3)
	assert.Equal(t, appliedScore{studentID: "kept-yes", points: 10, reliability: 0}, intents.scores[0])
	assert.Equal(t, appliedScore{studentID: "kept-no", points: 5, reliability: 0}, intents.scores[1])
	assert.Equal(t, appliedScore{studentID: "broken-yes", points: -8, reliability: -5}, intents.scores[2])
}

func TestReconcileSkipsAlreadySettledIntents(t *testing.T) {
	svc, intents, _, _ := newForecastFixture(morning(23, 30))
	intents.intents = []models.RideIntent{
		intent("i-1", "student-1", models.IntentYes),
		intent("i-2", "student-2", models.IntentYes),
	}
	intents.settled["i-1"] = true

	processed, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"i-2"}, intents.finalized)
	require.Len(t, intents.scores, 1)
	assert.Equal(t, "student-2", intents.scores[0].studentID)
}

func TestReconcileRecordsActualsWithAccuracy(t *testing.T) {
	svc, _, forecasts, attendance := newForecastFixture(morning(23, 30))
	forecasts.existing = []models.DemandForecast{
		{RouteID: "route-7", Date: "2026-03-02", ExpectedPassengers: 100},
		{RouteID: "route-8", Date: "2026-03-02", ExpectedPassengers: 0},
	}
	attendance.routeBoarding = []models.RouteBoardingCount{
		{RouteID: "route-7", Count: 87},
		{RouteID: "route-8", Count: 5},
	}

	_, err := svc.Reconcile(context.Background())
	require.NoError(t, err)

	require.Len(t, forecasts.actuals, 2)
	first := forecasts.actuals[0]
	assert.Equal(t, 87, first.actual)
	require.NotNil(t, first.accuracy)
	assert.Equal(t, 87, *first.accuracy)

	// No expected passengers means accuracy is undefined, not zero.
	second := forecasts.actuals[1]
	assert.Equal(t, 5, second.actual)
	assert.Nil(t, second.accuracy)
}

func TestReconcileRecordsZeroActualsForUnriddenRoute(t *testing.T) {
	// A forecasted route nobody rode still settles: zero actual passengers
	// and zero accuracy, so the forecast never dangles unreconciled.
	svc, _, forecasts, attendance := newForecastFixture(morning(23, 30))
	forecasts.existing = []models.DemandForecast{
		{RouteID: "route-7", Date: "2026-03-02", ExpectedPassengers: 30},
	}
	attendance.routeBoarding = nil

	_, err := svc.Reconcile(context.Background())
	require.NoError(t, err)

	require.Len(t, forecasts.actuals, 1)
	assert.Equal(t, "route-7", forecasts.actuals[0].routeID)
	assert.Equal(t, 0, forecasts.actuals[0].actual)
	require.NotNil(t, forecasts.actuals[0].accuracy)
	assert.Equal(t, 0, *forecasts.actuals[0].accuracy)
}

func TestReconcileCapsAccuracyAtHundred(t *testing.T) {
	svc, _, forecasts, attendance := newForecastFixture(morning(23, 30))
	forecasts.existing = []models.DemandForecast{
		{RouteID: "route-7", Date: "2026-03-02", ExpectedPassengers: 50},
	}
	attendance.routeBoarding = []models.RouteBoardingCount{
		{RouteID: "route-7", Count: 60},
	}

	_, err := svc.Reconcile(context.Background())
	require.NoError(t, err)

	require.Len(t, forecasts.actuals, 1)
	require.NotNil(t, forecasts.actuals[0].accuracy)
	assert.Equal(t, 100, *forecasts.actuals[0].accuracy)
}

package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

type forecastIntentRepository interface {
	ListUnprocessed(ctx context.Context, date string) ([]models.RideIntent, error)
	Finalize(ctx context.Context, id string, boarded bool, pointsDelta, reliabilityDelta int, at time.Time) (bool, error)
	ApplyScore(ctx context.Context, studentID string, pointsDelta, reliabilityDelta int) error
	CountsByRoute(ctx context.Context, date string) ([]models.RouteIntentCount, error)
}

type forecastRepository interface {
	Upsert(ctx context.Context, f *models.DemandForecast) error
	RecordActuals(ctx context.Context, routeID, date string, actual int, accuracy *int, at time.Time) error
	ForDate(ctx context.Context, date string) ([]models.DemandForecast, error)
	ListByDate(ctx context.Context, date, routeID string) ([]models.DemandForecast, error)
}

type forecastAttendanceRepository interface {
	HasBoarding(ctx context.Context, studentID, routeID, date string) (bool, error)
	BoardingCountsByRoute(ctx context.Context, date string) ([]models.RouteBoardingCount, error)
}

type forecastRouteRepository interface {
	Get(ctx context.Context, id string) (*models.Route, error)
}

// DefaultBusCapacity is assumed for routes with no configured capacity.
const DefaultBusCapacity = 40

// ForecastService builds next-day demand forecasts from declared ride intents
// and reconciles each intent against the boarding record once the day is over.
type ForecastService struct {
	intents    forecastIntentRepository
	forecasts  forecastRepository
	attendance forecastAttendanceRepository
	routes     forecastRouteRepository
	clock      clock.Clock
	logger     *zap.Logger
}

// NewForecastService constructs the forecast service.
func NewForecastService(intents forecastIntentRepository, forecasts forecastRepository, attendance forecastAttendanceRepository, routes forecastRouteRepository, clk clock.Clock, logger *zap.Logger) *ForecastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastService{intents: intents, forecasts: forecasts, attendance: attendance, routes: routes, clock: clk, logger: logger}
}

// BuildForecasts aggregates tomorrow's YES intents per route and upserts a
// capacity recommendation for each. At least one bus is always recommended.
func (s *ForecastService) BuildForecasts(ctx context.Context) (int, error) {
	now := s.clock.Now()
	tomorrow := clock.DateOf(now.AddDate(0, 0, 1))

	counts, err := s.intents.CountsByRoute(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	built := 0
	for _, rc := range counts {
		capacity := DefaultBusCapacity
		route, err := s.routes.Get(ctx, rc.RouteID)
		if err != nil {
			s.logger.Warn("route lookup failed, using default capacity",
				zap.String("route_id", rc.RouteID), zap.Error(err))
		} else if route.BusCapacity > 0 {
			capacity = route.BusCapacity
		}

		recommended := 1
		if rc.YesCount > 0 {
			recommended = int(math.Ceil(float64(rc.YesCount) / float64(capacity)))
		}

		if err := s.forecasts.Upsert(ctx, &models.DemandForecast{
			RouteID:            rc.RouteID,
			Date:               tomorrow,
			ExpectedPassengers: rc.YesCount,
			RecommendedBuses:   recommended,
			BusCapacity:        capacity,
			GeneratedAt:        now,
		}); err != nil {
			return built, err
		}
		built++
	}

	s.logger.Info("demand forecasts built",
		zap.String("date", tomorrow),
		zap.Int("routes", built))
	return built, nil
}

// scoreIntent maps (declared, boarded) to score deltas. Points never go below
// zero and reliability is clamped to [0, 100] at write time.
func scoreIntent(intent models.IntentChoice, boarded bool) (points, reliability int) {
	switch {
	case intent == models.IntentYes && boarded:
		return 10, 0
	case intent == models.IntentNo && !boarded:
		return 5, 0
	case intent == models.IntentYes && !boarded:
		return -8, -5
	default: // declared NO but rode anyway; neutral, the ticket was still paid
		return 0, 0
	}
}

// Reconcile finalizes today's unprocessed intents against the boarding record
// and stamps actual passenger counts onto today's forecasts. Each intent is
// settled exactly once even across concurrent runs.
func (s *ForecastService) Reconcile(ctx context.Context) (int, error) {
	now := s.clock.Now()
	today := clock.DateOf(now)

	intents, err := s.intents.ListUnprocessed(ctx, today)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, intent := range intents {
		boarded, err := s.attendance.HasBoarding(ctx, intent.StudentID, intent.RouteID, today)
		if err != nil {
			return processed, err
		}
		points, reliability := scoreIntent(intent.Intent, boarded)

		won, err := s.intents.Finalize(ctx, intent.ID, boarded, points, reliability, now)
		if err != nil {
			return processed, err
		}
		if !won {
			// Another run settled this intent first.
			continue
		}
		if points != 0 || reliability != 0 {
			if err := s.intents.ApplyScore(ctx, intent.StudentID, points, reliability); err != nil {
				return processed, err
			}
		}
		processed++
	}

	if err := s.recordActuals(ctx, today, now); err != nil {
		return processed, err
	}

	s.logger.Info("intent reconciliation finished",
		zap.String("date", today),
		zap.Int("processed", processed))
	return processed, nil
}

// recordActuals walks the day's forecasts, not the day's boardings, so a
// forecasted route nobody rode still settles with zero actual passengers and
// zero accuracy.
func (s *ForecastService) recordActuals(ctx context.Context, today string, now time.Time) error {
	forecasts, err := s.forecasts.ForDate(ctx, today)
	if err != nil {
		return err
	}
	if len(forecasts) == 0 {
		return nil
	}
	actuals, err := s.attendance.BoardingCountsByRoute(ctx, today)
	if err != nil {
		return err
	}
	counts := make(map[string]int, len(actuals))
	for _, a := range actuals {
		counts[a.RouteID] = a.Count
	}

	for _, f := range forecasts {
		actual := counts[f.RouteID]
		var accuracy *int
		if f.ExpectedPassengers > 0 {
			pct := int(math.Round(float64(actual) / float64(f.ExpectedPassengers) * 100))
			if pct > 100 {
				pct = 100
			}
			accuracy = &pct
		}
		if err := s.forecasts.RecordActuals(ctx, f.RouteID, today, actual, accuracy, now); err != nil {
			return err
		}
	}
	return nil
}

// ListForDate exposes forecasts for a given date, optionally filtered to one route.
func (s *ForecastService) ListForDate(ctx context.Context, date, routeID string) ([]models.DemandForecast, error) {
	if date == "" {
		date = clock.DateOf(s.clock.Now())
	}
	return s.forecasts.ListByDate(ctx, date, routeID)
}

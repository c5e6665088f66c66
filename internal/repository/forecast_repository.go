package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

const forecastColumns = `id, route_id, date, expected_passengers, recommended_buses, bus_capacity,
actual_passengers, prediction_accuracy, generated_at, reconciled_at`

// ForecastRepository persists per-route demand forecasts. All mutation goes
// through upsert-by-(route, date).
type ForecastRepository struct {
	db *sqlx.DB
}

// NewForecastRepository constructs the repository.
func NewForecastRepository(db *sqlx.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Upsert writes the forecast for one route/date, replacing expectations from
// an earlier run of the same evening.
func (r *ForecastRepository) Upsert(ctx context.Context, f *models.DemandForecast) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	query := `INSERT INTO demand_forecasts (id, route_id, date, expected_passengers, recommended_buses, bus_capacity, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (route_id, date)
DO UPDATE SET expected_passengers = EXCLUDED.expected_passengers,
    recommended_buses = EXCLUDED.recommended_buses,
    bus_capacity = EXCLUDED.bus_capacity,
    generated_at = EXCLUDED.generated_at`
	if _, err := r.db.ExecContext(ctx, query,
		f.ID, f.RouteID, f.Date, f.ExpectedPassengers, f.RecommendedBuses, f.BusCapacity, f.GeneratedAt,
	); err != nil {
		return fmt.Errorf("upsert demand forecast: %w", err)
	}
	return nil
}

// RecordActuals back-fills the realized ridership and accuracy after the day
// closed.
func (r *ForecastRepository) RecordActuals(ctx context.Context, routeID, date string, actual int, accuracy *int, at time.Time) error {
	query := `UPDATE demand_forecasts
SET actual_passengers = $1, prediction_accuracy = $2, reconciled_at = $3
WHERE route_id = $4 AND date = $5`
	if _, err := r.db.ExecContext(ctx, query, actual, accuracy, at, routeID, date); err != nil {
		return fmt.Errorf("record forecast actuals: %w", err)
	}
	return nil
}

// ListByDate returns forecasts for a day, optionally narrowed to one route.
func (r *ForecastRepository) ListByDate(ctx context.Context, date, routeID string) ([]models.DemandForecast, error) {
	query := fmt.Sprintf(`SELECT %s FROM demand_forecasts WHERE date = $1`, forecastColumns)
	args := []interface{}{date}
	if routeID != "" {
		query += ` AND route_id = $2`
		args = append(args, routeID)
	}
	query += ` ORDER BY route_id`
	var forecasts []models.DemandForecast
	if err := r.db.SelectContext(ctx, &forecasts, query, args...); err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return forecasts, nil
}

// ForDate returns the forecast rows needing actuals for reconciliation.
func (r *ForecastRepository) ForDate(ctx context.Context, date string) ([]models.DemandForecast, error) {
	return r.ListByDate(ctx, date, "")
}

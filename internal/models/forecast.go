package models

import "time"

// DemandForecast is the per-route-per-day capacity prediction. One row per
// (route, date); the forecaster mutates it only through upserts.
type DemandForecast struct {
	ID                 string     `db:"id" json:"id"`
	RouteID            string     `db:"route_id" json:"route_id"`
	Date               string     `db:"date" json:"date"`
	ExpectedPassengers int        `db:"expected_passengers" json:"expected_passengers"`
	RecommendedBuses   int        `db:"recommended_buses" json:"recommended_buses"`
	BusCapacity        int        `db:"bus_capacity" json:"bus_capacity"`
	ActualPassengers   *int       `db:"actual_passengers" json:"actual_passengers,omitempty"`
	PredictionAccuracy *int       `db:"prediction_accuracy" json:"prediction_accuracy,omitempty"`
	GeneratedAt        time.Time  `db:"generated_at" json:"generated_at"`
	ReconciledAt       *time.Time `db:"reconciled_at" json:"reconciled_at,omitempty"`
}

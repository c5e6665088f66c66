package models

import "time"

// IntentChoice is a student's declared plan to ride (or not) on a future date.
type IntentChoice string

const (
	IntentYes IntentChoice = "YES"
	IntentNo  IntentChoice = "NO"
)

// RideIntent is one declaration per student per travel date. The reconciler
// finalizes it exactly once, guarded by the processed flag.
type RideIntent struct {
	ID               string       `db:"id" json:"id"`
	StudentID        string       `db:"student_id" json:"student_id"`
	RouteID          string       `db:"route_id" json:"route_id"`
	Shift            Shift        `db:"shift" json:"shift"`
	TravelDate       string       `db:"travel_date" json:"travel_date"`
	Intent           IntentChoice `db:"intent" json:"intent"`
	DeclaredAt       time.Time    `db:"declared_at" json:"declared_at"`
	Boarded          *bool        `db:"boarded" json:"boarded,omitempty"`
	PointsDelta      *int         `db:"points_delta" json:"points_delta,omitempty"`
	ReliabilityDelta *int         `db:"reliability_delta" json:"reliability_delta,omitempty"`
	Processed        bool         `db:"processed" json:"processed"`
	ProcessedAt      *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
}

// RouteIntentCount aggregates YES/NO declarations per route for one date.
type RouteIntentCount struct {
	RouteID  string `db:"route_id"`
	YesCount int    `db:"yes_count"`
	NoCount  int    `db:"no_count"`
}

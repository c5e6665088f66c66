package models

import "time"

// CheckpointPhase is the driver-side trip phase. Transitions are strictly
// linear: boarding → at_university → returning → completed.
type CheckpointPhase string

const (
	PhaseCheckpointBoarding     CheckpointPhase = "boarding"
	PhaseCheckpointAtUniversity CheckpointPhase = "at_university"
	PhaseCheckpointReturning    CheckpointPhase = "returning"
	PhaseCheckpointCompleted    CheckpointPhase = "completed"
)

// TripCheckpoint is one driver's odometer trail for a single day/shift.
// Exactly one row exists per (driver, date, shift).
type TripCheckpoint struct {
	ID                  string          `db:"id" json:"id"`
	DriverID            string          `db:"driver_id" json:"driver_id"`
	RouteID             string          `db:"route_id" json:"route_id"`
	Shift               Shift           `db:"shift" json:"shift"`
	Date                string          `db:"date" json:"date"`
	Phase               CheckpointPhase `db:"phase" json:"phase"`
	StartOdometer       float64         `db:"start_odometer" json:"start_odometer"`
	StartAt             time.Time       `db:"start_at" json:"start_at"`
	DestinationOdometer *float64        `db:"destination_odometer" json:"destination_odometer,omitempty"`
	DestinationAt       *time.Time      `db:"destination_at" json:"destination_at,omitempty"`
	ReturnOdometer      *float64        `db:"return_odometer" json:"return_odometer,omitempty"`
	ReturnAt            *time.Time      `db:"return_at" json:"return_at,omitempty"`
	HomeOdometer        *float64        `db:"home_odometer" json:"home_odometer,omitempty"`
	HomeAt              *time.Time      `db:"home_at" json:"home_at,omitempty"`
	TotalKm             *float64        `db:"total_km" json:"total_km,omitempty"`
}

// LastOdometer returns the most recent recorded reading.
func (t *TripCheckpoint) LastOdometer() float64 {
	switch {
	case t.HomeOdometer != nil:
		return *t.HomeOdometer
	case t.ReturnOdometer != nil:
		return *t.ReturnOdometer
	case t.DestinationOdometer != nil:
		return *t.DestinationOdometer
	default:
		return t.StartOdometer
	}
}

// CheckpointRequest carries the odometer reading for one transition.
type CheckpointRequest struct {
	Odometer float64 `json:"odometer" validate:"required,gt=0"`
}

// CheckpointResult is the response to a checkpoint transition.
type CheckpointResult struct {
	Checkpoint      *TripCheckpoint `json:"checkpoint"`
	Phase           CheckpointPhase `json:"phase"`
	StudentsUpdated int64           `json:"students_updated"`
	TotalKmTraveled *float64        `json:"total_km_traveled,omitempty"`
}

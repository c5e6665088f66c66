package models

import "time"

// JourneyStatus is the per-day lifecycle of one student's journey.
type JourneyStatus string

const (
	JourneyNotStarted JourneyStatus = "not_started"
	JourneyInProgress JourneyStatus = "in_progress"
	JourneyCompleted  JourneyStatus = "completed"
	JourneyAbsent     JourneyStatus = "absent"
)

// AbsentReasonNotBoarded marks students the end-of-day sweep found unscanned.
const AbsentReasonNotBoarded = "not_boarded"

// JourneyLog is the authoritative per-student-per-day journey record. Exactly
// one row exists per (student, date); all writers use upsert semantics.
type JourneyLog struct {
	ID                   string         `db:"id" json:"id"`
	StudentID            string         `db:"student_id" json:"student_id"`
	RouteID              string         `db:"route_id" json:"route_id"`
	Shift                Shift          `db:"shift" json:"shift"`
	CredentialID         string         `db:"credential_id" json:"credential_id"`
	CredentialKind       CredentialKind `db:"credential_kind" json:"credential_kind"`
	Date                 string         `db:"date" json:"date"`
	Status               JourneyStatus  `db:"status" json:"status"`
	OnboardedAt          *time.Time     `db:"onboarded_at" json:"onboarded_at,omitempty"`
	ReachedDestinationAt *time.Time     `db:"reached_destination_at" json:"reached_destination_at,omitempty"`
	LeftForHomeAt        *time.Time     `db:"left_for_home_at" json:"left_for_home_at,omitempty"`
	ReachedHomeAt        *time.Time     `db:"reached_home_at" json:"reached_home_at,omitempty"`
	Absent               bool           `db:"absent" json:"absent"`
	AbsentReason         *string        `db:"absent_reason" json:"absent_reason,omitempty"`
	MarkedBy             *string        `db:"marked_by" json:"marked_by,omitempty"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

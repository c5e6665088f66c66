package models

// Shift identifies which of the two daily bus runs a credential or trip belongs to.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Valid reports whether the shift is one of the two known values.
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// ScanPhase is the kind of scan event: outbound boarding or inbound return.
type ScanPhase string

const (
	PhaseBoarding ScanPhase = "boarding"
	PhaseReturn   ScanPhase = "return"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

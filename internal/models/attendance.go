package models

import "time"

// AttendanceRecord is one immutable scan event. At most one record exists per
// (credential, date, phase); the table carries a matching unique constraint.
type AttendanceRecord struct {
	ID             string         `db:"id" json:"id"`
	CredentialID   string         `db:"credential_id" json:"credential_id"`
	CredentialKind CredentialKind `db:"credential_kind" json:"credential_kind"`
	StudentID      string         `db:"student_id" json:"student_id"`
	StudentName    string         `db:"student_name" json:"student_name,omitempty"`
	RouteID        string         `db:"route_id" json:"route_id"`
	Date           string         `db:"date" json:"date"`
	Shift          Shift          `db:"shift" json:"shift"`
	ScanPhase      ScanPhase      `db:"scan_phase" json:"scan_phase"`
	ScannedAt      time.Time      `db:"scanned_at" json:"scanned_at"`
	DriverID       string         `db:"driver_id" json:"driver_id"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	RouteID   string
	Date      string
	Shift     Shift
	StudentID string
	Phase     ScanPhase
	Page      int
	PageSize  int
}

// RouteBoardingCount aggregates boarding scans per route for one day.
type RouteBoardingCount struct {
	RouteID string `db:"route_id"`
	Count   int    `db:"count"`
}

// ScanRequest carries one raw credential token from a driver's scanner.
type ScanRequest struct {
	Token string `json:"token" validate:"required"`
}

// ScanResult is the structured response to a successful scan.
type ScanResult struct {
	Verified       bool           `json:"verified"`
	CredentialKind CredentialKind `json:"type"`
	Student        ScanStudent    `json:"student"`
	RouteID        string         `json:"route"`
	Shift          Shift          `json:"shift"`
	ScanPhase      ScanPhase      `json:"scan_phase"`
	ScanCount      int            `json:"scan_count"`
	MaxScans       int            `json:"max_scans"`
}

// ScanStudent is the display block for the scanning driver's screen.
type ScanStudent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

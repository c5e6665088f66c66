package models

import "time"

// CredentialKind tags which store a credential was resolved from.
type CredentialKind string

const (
	CredentialPass   CredentialKind = "pass"
	CredentialTicket CredentialKind = "ticket"
)

// PassStatus is the lifecycle state of a bus pass.
type PassStatus string

const (
	PassPending  PassStatus = "pending"
	PassApproved PassStatus = "approved"
	PassRejected PassStatus = "rejected"
	PassExpired  PassStatus = "expired"
)

// TicketStatus is the lifecycle state of a day ticket.
type TicketStatus string

const (
	TicketPaid      TicketStatus = "paid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// TicketType distinguishes single from round-trip day tickets.
type TicketType string

const (
	TicketSingle TicketType = "single"
	TicketRound  TicketType = "round"
)

// BusPass is a term-long boarding credential for one route/shift.
type BusPass struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	StudentName    string     `db:"student_name" json:"student_name"`
	RouteID        string     `db:"route_id" json:"route_id"`
	Shift          Shift      `db:"shift" json:"shift"`
	Status         PassStatus `db:"status" json:"status"`
	ValidFrom      string     `db:"valid_from" json:"valid_from"`
	ValidUntil     string     `db:"valid_until" json:"valid_until"`
	ScansToday     int        `db:"scans_today" json:"scans_today"`
	ScanDate       *string    `db:"scan_date" json:"scan_date,omitempty"`
	MaxScansPerDay int        `db:"max_scans_per_day" json:"max_scans_per_day"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// DayTicket is a one-day boarding credential for one route/shift.
type DayTicket struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	StudentName string       `db:"student_name" json:"student_name"`
	RouteID     string       `db:"route_id" json:"route_id"`
	Shift       Shift        `db:"shift" json:"shift"`
	TravelDate  string       `db:"travel_date" json:"travel_date"`
	TripType    TicketType   `db:"trip_type" json:"trip_type"`
	Status      TicketStatus `db:"status" json:"status"`
	ScansUsed   int          `db:"scans_used" json:"scans_used"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Credential is the tagged union carried through the scan pipeline once a
// token has been resolved against the pass or ticket store.
type Credential struct {
	Kind   CredentialKind
	Pass   *BusPass
	Ticket *DayTicket
}

func (c Credential) ID() string {
	if c.Kind == CredentialPass {
		return c.Pass.ID
	}
	return c.Ticket.ID
}

func (c Credential) StudentID() string {
	if c.Kind == CredentialPass {
		return c.Pass.StudentID
	}
	return c.Ticket.StudentID
}

func (c Credential) StudentName() string {
	if c.Kind == CredentialPass {
		return c.Pass.StudentName
	}
	return c.Ticket.StudentName
}

func (c Credential) RouteID() string {
	if c.Kind == CredentialPass {
		return c.Pass.RouteID
	}
	return c.Ticket.RouteID
}

func (c Credential) Shift() Shift {
	if c.Kind == CredentialPass {
		return c.Pass.Shift
	}
	return c.Ticket.Shift
}

// MaxScans is the daily scan allowance: 2 for passes and round tickets, 1 for
// single tickets.
func (c Credential) MaxScans() int {
	if c.Kind == CredentialPass {
		if c.Pass.MaxScansPerDay > 0 {
			return c.Pass.MaxScansPerDay
		}
		return 2
	}
	if c.Ticket.TripType == TicketSingle {
		return 1
	}
	return 2
}

// ActiveOn reports whether the credential may be scanned on the given calendar
// day: an approved pass within its validity window, or a paid ticket for that day.
func (c Credential) ActiveOn(date string) bool {
	if c.Kind == CredentialPass {
		p := c.Pass
		return p.Status == PassApproved && p.ValidFrom <= date && date <= p.ValidUntil
	}
	t := c.Ticket
	return t.Status == TicketPaid && t.TravelDate == date
}

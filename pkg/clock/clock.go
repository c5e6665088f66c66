package clock

import "time"

// DateLayout is the calendar-day key used across attendance and journey rows.
const DateLayout = "2006-01-02"

// Clock supplies the authoritative time for one operation. Every service reads
// Now exactly once per request so that window decisions and the records they
// produce agree on the same instant.
type Clock interface {
	Now() time.Time
}

// Real is the production clock pinned to a single timezone.
type Real struct {
	loc *time.Location
}

// NewReal builds the production clock for the given IANA timezone name.
func NewReal(timezone string) (*Real, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Real{loc: loc}, nil
}

func (r *Real) Now() time.Time {
	return time.Now().In(r.loc)
}

// Location exposes the configured timezone for scheduler wiring.
func (r *Real) Location() *time.Location {
	return r.loc
}

// Fixed returns a clock frozen at t. Test configurations only.
type Fixed struct {
	t time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	return f.t
}

// Set moves the frozen instant; used by tests walking through a day.
func (f *Fixed) Set(t time.Time) {
	f.t = t
}

// Location returns the frozen instant's timezone.
func (f *Fixed) Location() *time.Location {
	return f.t.Location()
}

// DateOf formats the calendar day of t.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

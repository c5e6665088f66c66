// Package shiftwindow decides whether a scan attempt is legal at a given clock
// time and which phase it represents. The decision is pure: it depends only on
// the shift's two cutoffs, the number of scans already recorded today, and the
// single authoritative "now" of the calling operation.
package shiftwindow

import (
	"fmt"
	"time"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/config"
)

// ClockTime is a time-of-day cutoff, independent of date.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (ClockTime, error) {
	var ct ClockTime
	if _, err := fmt.Sscanf(raw, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", raw, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", raw)
	}
	return ct, nil
}

// On anchors the cutoff to the calendar day of t.
func (ct ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), ct.Hour, ct.Minute, 0, 0, t.Location())
}

func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// Window holds the two non-overlapping cutoffs of one shift. Between the
// boarding deadline and the return-eligible time the bus is mid-transit and no
// scan is legal.
type Window struct {
	BoardingDeadline   ClockTime
	ReturnEligibleFrom ClockTime
}

// Decision is the outcome of evaluating one scan attempt.
type Decision struct {
	Allowed bool
	Phase   models.ScanPhase
	Reason  string
}

// Policy maps shifts to their scan windows.
type Policy struct {
	windows map[models.Shift]Window
}

// NewPolicy builds the policy from config clock strings.
func NewPolicy(cfg config.ShiftsConfig) (*Policy, error) {
	windows := make(map[models.Shift]Window, 2)
	for shift, wc := range map[models.Shift]config.ShiftWindowConfig{
		models.ShiftMorning:   cfg.Morning,
		models.ShiftAfternoon: cfg.Afternoon,
	} {
		deadline, err := ParseClock(wc.BoardingDeadline)
		if err != nil {
			return nil, fmt.Errorf("%s boarding deadline: %w", shift, err)
		}
		returnFrom, err := ParseClock(wc.ReturnEligibleFrom)
		if err != nil {
			return nil, fmt.Errorf("%s return eligibility: %w", shift, err)
		}
		windows[shift] = Window{BoardingDeadline: deadline, ReturnEligibleFrom: returnFrom}
	}
	return &Policy{windows: windows}, nil
}

// Evaluate decides whether a scan right now is legal for a credential that has
// already recorded scansToday scans on the current calendar day.
//
//	scansToday == 0: boarding, allowed iff now <= boarding deadline
//	scansToday == 1: return, allowed iff now >= return-eligible time
//	scansToday >= 2: never allowed
func (p *Policy) Evaluate(shift models.Shift, scansToday int, now time.Time) Decision {
	w, ok := p.windows[shift]
	if !ok {
		return Decision{Allowed: false, Reason: fmt.Sprintf("unknown shift %q", shift)}
	}

	switch {
	case scansToday == 0:
		deadline := w.BoardingDeadline.On(now)
		if now.After(deadline) {
			return Decision{
				Allowed: false,
				Phase:   models.PhaseBoarding,
				Reason:  fmt.Sprintf("boarding closed at %s for the %s shift", w.BoardingDeadline, shift),
			}
		}
		return Decision{Allowed: true, Phase: models.PhaseBoarding}
	case scansToday == 1:
		eligible := w.ReturnEligibleFrom.On(now)
		if now.Before(eligible) {
			return Decision{
				Allowed: false,
				Phase:   models.PhaseReturn,
				Reason:  fmt.Sprintf("return scanning opens at %s for the %s shift", w.ReturnEligibleFrom, shift),
			}
		}
		return Decision{Allowed: true, Phase: models.PhaseReturn}
	default:
		return Decision{Allowed: false, Reason: "daily scan limit reached"}
	}
}

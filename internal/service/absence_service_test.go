package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

type mockAbsenceCredentialRepo struct {
	credentials []models.Credential
}

func (m *mockAbsenceCredentialRepo) ActiveForDate(ctx context.Context, date string) ([]models.Credential, error) {
	return m.credentials, nil
}

type mockAbsenceJourneyRepo struct {
	boarded map[string]bool
	absent  map[string]bool
	marked  []*models.JourneyLog
}

// MarkAbsent mirrors the repository's guarded upsert: a student who boarded
// or was already marked absent reports no new row.
func (m *mockAbsenceJourneyRepo) MarkAbsent(ctx context.Context, log *models.JourneyLog) (bool, error) {
	if m.boarded[log.StudentID] || m.absent[log.StudentID] {
		return false, nil
	}
	if m.absent == nil {
		m.absent = map[string]bool{}
	}
	m.absent[log.StudentID] = true
	m.marked = append(m.marked, log)
	return true, nil
}

func absencePass(id, studentID string) models.Credential {
	return models.Credential{
		Kind: models.CredentialPass,
		Pass: &models.BusPass{
			ID:        id,
			StudentID: studentID,
			RouteID:   "route-7",
			Shift:     models.ShiftMorning,
			Status:    models.PassApproved,
		},
	}
}

func TestAbsenceSweepMarksUnscannedStudents(t *testing.T) {
	creds := &mockAbsenceCredentialRepo{credentials: []models.Credential{
		absencePass("pass-1", "student-1"),
		absencePass("pass-2", "student-2"),
		absencePass("pass-3", "student-3"),
	}}
	journeys := &mockAbsenceJourneyRepo{boarded: map[string]bool{"student-2": true}}
	svc := NewAbsenceService(creds, journeys, clock.NewFixed(morning(23, 59)), zap.NewNop())

	marked, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, marked)
	require.Len(t, journeys.marked, 2)
	first := journeys.marked[0]
	assert.Equal(t, "2026-03-02", first.Date)
	assert.Equal(t, models.JourneyAbsent, first.Status)
	assert.True(t, first.Absent)
	require.NotNil(t, first.AbsentReason)
	assert.Equal(t, models.AbsentReasonNotBoarded, *first.AbsentReason)
	require.NotNil(t, first.MarkedBy)
	assert.Equal(t, "absence-detector", *first.MarkedBy)
}

func TestAbsenceSweepDeduplicatesStudents(t *testing.T) {
	// One student holding a pass and a same-day ticket is swept once.
	ticket := models.Credential{
		Kind: models.CredentialTicket,
		Ticket: &models.DayTicket{
			ID:         "ticket-1",
			StudentID:  "student-1",
			RouteID:    "route-7",
			Shift:      models.ShiftMorning,
			TravelDate: "2026-03-02",
			Status:     models.TicketPaid,
		},
	}
	creds := &mockAbsenceCredentialRepo{credentials: []models.Credential{
		absencePass("pass-1", "student-1"),
		ticket,
	}}
	journeys := &mockAbsenceJourneyRepo{}
	svc := NewAbsenceService(creds, journeys, clock.NewFixed(morning(23, 59)), zap.NewNop())

	marked, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Len(t, journeys.marked, 1)
}

func TestAbsenceSweepRerunIsIdempotent(t *testing.T) {
	creds := &mockAbsenceCredentialRepo{credentials: []models.Credential{
		absencePass("pass-1", "student-1"),
	}}
	journeys := &mockAbsenceJourneyRepo{boarded: map[string]bool{}}
	svc := NewAbsenceService(creds, journeys, clock.NewFixed(morning(23, 59)), zap.NewNop())

	marked, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	// The second run hits the already-absent row and reports nothing new.
	marked, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
	assert.Len(t, journeys.marked, 1)
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

type absenceCredentialRepository interface {
	ActiveForDate(ctx context.Context, date string) ([]models.Credential, error)
}

type absenceJourneyRepository interface {
	MarkAbsent(ctx context.Context, log *models.JourneyLog) (bool, error)
}

const absenceMarkedBy = "absence-detector"

// AbsenceService is the end-of-day sweep that marks every expected-but-unscanned
// student absent. Safe to rerun: students with a boarding record are left alone,
// already-absent students are not double counted.
type AbsenceService struct {
	credentials absenceCredentialRepository
	journeys    absenceJourneyRepository
	clock       clock.Clock
	logger      *zap.Logger
}

// NewAbsenceService constructs the absence sweep service.
func NewAbsenceService(credentials absenceCredentialRepository, journeys absenceJourneyRepository, clk clock.Clock, logger *zap.Logger) *AbsenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{credentials: credentials, journeys: journeys, clock: clk, logger: logger}
}

// Run sweeps today's active credentials and returns how many students were
// newly marked absent.
func (s *AbsenceService) Run(ctx context.Context) (int, error) {
	now := s.clock.Now()
	today := clock.DateOf(now)

	creds, err := s.credentials.ActiveForDate(ctx, today)
	if err != nil {
		return 0, err
	}

	// A student holding both a pass and a ticket must be swept once.
	seen := make(map[string]struct{}, len(creds))
	marked := 0
	for _, cred := range creds {
		studentID := cred.StudentID()
		if _, ok := seen[studentID]; ok {
			continue
		}
		seen[studentID] = struct{}{}

		reason := models.AbsentReasonNotBoarded
		markedBy := absenceMarkedBy
		newlyMarked, err := s.journeys.MarkAbsent(ctx, &models.JourneyLog{
			StudentID:      studentID,
			RouteID:        cred.RouteID(),
			Shift:          cred.Shift(),
			CredentialID:   cred.ID(),
			CredentialKind: cred.Kind,
			Date:           today,
			Status:         models.JourneyAbsent,
			Absent:         true,
			AbsentReason:   &reason,
			MarkedBy:       &markedBy,
			UpdatedAt:      now,
		})
		if err != nil {
			s.logger.Error("failed to mark student absent",
				zap.String("student_id", studentID),
				zap.String("date", today),
				zap.Error(err))
			return marked, err
		}
		if newlyMarked {
			marked++
		}
	}

	s.logger.Info("absence sweep finished",
		zap.String("date", today),
		zap.Int("credentials", len(creds)),
		zap.Int("marked_absent", marked))
	return marked, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

type journeyQueryRepository interface {
	GetByStudentDate(ctx context.Context, studentID, date string) (*models.JourneyLog, error)
	ListByRoute(ctx context.Context, routeID, date string, shift models.Shift) ([]models.JourneyLog, error)
}

// JourneyService serves journey-log lookups for drivers and back-office staff.
type JourneyService struct {
	repo   journeyQueryRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewJourneyService constructs the journey query service.
func NewJourneyService(repo journeyQueryRepository, clk clock.Clock, logger *zap.Logger) *JourneyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JourneyService{repo: repo, clock: clk, logger: logger}
}

// TodayForDriver lists today's journey logs on the driver's route and shift.
func (s *JourneyService) TodayForDriver(ctx context.Context, driver models.DriverClaims) ([]models.JourneyLog, error) {
	today := clock.DateOf(s.clock.Now())
	logs, err := s.repo.ListByRoute(ctx, driver.RouteID, today, driver.Shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list journeys")
	}
	return logs, nil
}

// ForStudent returns one student's journey log for a date, defaulting to today.
func (s *JourneyService) ForStudent(ctx context.Context, studentID, date string) (*models.JourneyLog, error) {
	if date == "" {
		date = clock.DateOf(s.clock.Now())
	}
	log, err := s.repo.GetByStudentDate(ctx, studentID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no journey recorded for this student on that date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journey")
	}
	return log, nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

type analyticsCounterRepository interface {
	Counters(ctx context.Context, routeID, date string, shift models.Shift) (*models.RouteAnalytics, error)
}

// AnalyticsService serves the live per-route passenger counters.
type AnalyticsService struct {
	repo   analyticsCounterRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewAnalyticsService constructs the analytics query service.
func NewAnalyticsService(repo analyticsCounterRepository, clk clock.Clock, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, clock: clk, logger: logger}
}

// RouteToday reads today's live counters for one route and shift.
func (s *AnalyticsService) RouteToday(ctx context.Context, routeID string, shift models.Shift) (*models.RouteAnalytics, error) {
	if !shift.Valid() {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown shift %q", shift)
	}
	today := clock.DateOf(s.clock.Now())
	counters, err := s.repo.Counters(ctx, routeID, today, shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read route counters")
	}
	return counters, nil
}

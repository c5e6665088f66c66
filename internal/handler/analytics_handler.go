package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type analyticsService interface {
	RouteToday(ctx context.Context, routeID string, shift models.Shift) (*models.RouteAnalytics, error)
}

// AnalyticsHandler exposes the live per-route passenger counters.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// RouteToday godoc
// @Summary Show today's live counters for one route
// @Tags Analytics
// @Produce json
// @Param routeId path string true "Route ID"
// @Param shift query string true "Shift (morning/afternoon)"
// @Success 200 {object} response.Envelope
// @Router /routes/{routeId}/analytics/today [get]
func (h *AnalyticsHandler) RouteToday(c *gin.Context) {
	routeID := c.Param("routeId")
	if routeID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "routeId is required"))
		return
	}

	counters, err := h.service.RouteToday(c.Request.Context(), routeID, models.Shift(c.Query("shift")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counters)
}

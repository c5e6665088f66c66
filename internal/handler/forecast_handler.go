package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type forecastQueryService interface {
	ListForDate(ctx context.Context, date, routeID string) ([]models.DemandForecast, error)
}

// ForecastHandler exposes demand forecast queries.
type ForecastHandler struct {
	service forecastQueryService
}

// NewForecastHandler constructs the handler.
func NewForecastHandler(service forecastQueryService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// List godoc
// @Summary List demand forecasts for a date
// @Tags Forecasts
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param routeId query string false "Route ID"
// @Success 200 {object} response.Envelope
// @Router /forecasts [get]
func (h *ForecastHandler) List(c *gin.Context) {
	forecasts, err := h.service.ListForDate(c.Request.Context(), c.Query("date"), c.Query("routeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, forecasts)
}

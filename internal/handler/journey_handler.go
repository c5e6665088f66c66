package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type journeyService interface {
	TodayForDriver(ctx context.Context, driver models.DriverClaims) ([]models.JourneyLog, error)
	ForStudent(ctx context.Context, studentID, date string) (*models.JourneyLog, error)
}

// JourneyHandler exposes journey-log queries.
type JourneyHandler struct {
	service journeyService
}

// NewJourneyHandler constructs the handler.
func NewJourneyHandler(service journeyService) *JourneyHandler {
	return &JourneyHandler{service: service}
}

// Today godoc
// @Summary List today's journeys on the driver's route
// @Tags Journeys
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /journeys/today [get]
func (h *JourneyHandler) Today(c *gin.Context) {
	driver := driverFromContext(c)
	if driver == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	logs, err := h.service.TodayForDriver(c.Request.Context(), *driver)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}

// ForStudent godoc
// @Summary Show one student's journey for a date
// @Tags Journeys
// @Produce json
// @Param studentId path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /journeys/students/{studentId} [get]
func (h *JourneyHandler) ForStudent(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}

	log, err := h.service.ForStudent(c.Request.Context(), studentID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, log)
}

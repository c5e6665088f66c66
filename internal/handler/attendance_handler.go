package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/internal/service"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type attendanceService interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error)
	Manifest(ctx context.Context, routeID, date string, shift models.Shift, format service.ManifestFormat) (*service.ManifestDocument, error)
}

// AttendanceHandler exposes scan history and manifest export endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

func parseQueryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// List godoc
// @Summary List scan records
// @Tags Attendance
// @Produce json
// @Param routeId query string false "Route ID"
// @Param studentId query string false "Student ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param shift query string false "Shift (morning/afternoon)"
// @Param phase query string false "Scan phase (boarding/return)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		RouteID:   c.Query("routeId"),
		StudentID: c.Query("studentId"),
		Date:      c.Query("date"),
		Shift:     models.Shift(c.Query("shift")),
		Phase:     models.ScanPhase(c.Query("phase")),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 50),
	}

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, rows, pagination)
}

// Manifest godoc
// @Summary Export the passenger manifest for one route and shift
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param routeId query string true "Route ID"
// @Param shift query string true "Shift (morning/afternoon)"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "Export format (csv/pdf), defaults to csv"
// @Success 200 {file} binary
// @Router /attendance/manifest [get]
func (h *AttendanceHandler) Manifest(c *gin.Context) {
	doc, err := h.service.Manifest(
		c.Request.Context(),
		c.Query("routeId"),
		c.Query("date"),
		models.Shift(c.Query("shift")),
		service.ManifestFormat(c.Query("format")),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

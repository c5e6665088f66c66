package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type checkpointService interface {
	StartShift(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error)
	ReachedDestination(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error)
	StartReturn(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error)
	ReachedHome(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error)
	Today(ctx context.Context, driver models.DriverClaims) (*models.TripCheckpoint, error)
}

// CheckpointHandler exposes the four trip transition endpoints.
type CheckpointHandler struct {
	service checkpointService
}

// NewCheckpointHandler constructs the handler.
func NewCheckpointHandler(service checkpointService) *CheckpointHandler {
	return &CheckpointHandler{service: service}
}

type transitionFunc func(ctx context.Context, driver models.DriverClaims, odometer float64) (*models.CheckpointResult, error)

func (h *CheckpointHandler) transition(c *gin.Context, fn transitionFunc) {
	driver := driverFromContext(c)
	if driver == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := fn(c.Request.Context(), *driver, req.Odometer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// StartShift godoc
// @Summary Open today's trip and enable boarding scans
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param payload body models.CheckpointRequest true "Starting odometer"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/start-shift [post]
func (h *CheckpointHandler) StartShift(c *gin.Context) {
	h.transition(c, h.service.StartShift)
}

// ReachedDestination godoc
// @Summary Record arrival at the university
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param payload body models.CheckpointRequest true "Odometer at destination"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/reached-destination [post]
func (h *CheckpointHandler) ReachedDestination(c *gin.Context) {
	h.transition(c, h.service.ReachedDestination)
}

// StartReturn godoc
// @Summary Open return scanning for the trip home
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param payload body models.CheckpointRequest true "Odometer at departure"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/start-return [post]
func (h *CheckpointHandler) StartReturn(c *gin.Context) {
	h.transition(c, h.service.StartReturn)
}

// ReachedHome godoc
// @Summary Complete the trip and close all journeys
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param payload body models.CheckpointRequest true "Final odometer"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/reached-home [post]
func (h *CheckpointHandler) ReachedHome(c *gin.Context) {
	h.transition(c, h.service.ReachedHome)
}

// Today godoc
// @Summary Show the driver's current trip checkpoint
// @Tags Checkpoints
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /checkpoints/today [get]
func (h *CheckpointHandler) Today(c *gin.Context) {
	driver := driverFromContext(c)
	if driver == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cp, err := h.service.Today(c.Request.Context(), *driver)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cp)
}

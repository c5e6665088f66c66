package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/response"
)

type scanService interface {
	Scan(ctx context.Context, driver models.DriverClaims, rawToken string) (*models.ScanResult, error)
}

// ScanHandler exposes the credential scan endpoint used by driver devices.
type ScanHandler struct {
	service scanService
}

// NewScanHandler constructs the handler.
func NewScanHandler(service scanService) *ScanHandler {
	return &ScanHandler{service: service}
}

// Scan godoc
// @Summary Verify a boarding credential and record the scan
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body models.ScanRequest true "Raw credential token"
// @Success 201 {object} response.Envelope
// @Router /scans [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	driver := driverFromContext(c)
	if driver == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if req.Token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.Scan(c.Request.Context(), *driver, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

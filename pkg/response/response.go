package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/models"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

// Envelope is the response contract every endpoint speaks. Exactly one of
// Data or Error is set.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// OK sends a 200 with the payload wrapped in the envelope.
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Envelope{Data: data})
}

// Created sends a 201 with the payload wrapped in the envelope.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Envelope{Data: data})
}

// Paginated sends a 200 with payload and page metadata.
func Paginated(c *gin.Context, data interface{}, p *models.Pagination) {
	write(c, http.StatusOK, Envelope{Data: data, Pagination: p})
}

// Error maps err onto the envelope, using the typed error's status when it
// carries one and 500 otherwise.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a bare 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, envelope Envelope) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, envelope)
}

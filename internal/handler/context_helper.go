package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-transit-api/internal/middleware"
	"github.com/noah-isme/campus-transit-api/internal/models"
)

func driverFromContext(c *gin.Context) *models.DriverClaims {
	value, exists := c.Get(middleware.ContextDriverKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.DriverClaims)
	if !ok {
		return nil
	}
	return claims
}

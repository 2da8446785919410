package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness plus which providers hold credentials, so a
// deploy can be verified without firing a screening.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   h.version,
		"providers": h.screener.FeatureFlags(),
	})
}

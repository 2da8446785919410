package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WithAPIKey rejects requests whose X-API-Key header does not match
// key. Paths under an excluded prefix pass through unchecked so health
// probes and metrics scrapers keep working. An empty key disables the
// check entirely.
func WithAPIKey(key string, excludedPaths []string, logger *slog.Logger) gin.HandlerFunc {
	if key == "" {
		logger.Info("API key auth is disabled")
		return func(c *gin.Context) {
			c.Next()
		}
	}
	logger.Info("API key auth enabled", "excluded_paths", excludedPaths)
	return func(c *gin.Context) {
		for _, prefix := range excludedPaths {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		c.Next()
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CacheStats returns the cache counters. Stats sweeps expired entries
// first, so size only counts live entries.
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}

// CacheClear drops every cached result. Counters survive the clear so
// hit rates stay meaningful across operator resets.
func (h *Handler) CacheClear(c *gin.Context) {
	h.cache.Clear()
	h.logger.Info("cache cleared")
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "cache cleared",
	})
}

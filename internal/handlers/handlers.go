// Package handlers exposes the screening service over HTTP. Request
// bodies are validated field by field before anything reaches a
// provider; domain errors map onto HTTP statuses in one place.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/laithharzallah/Laithstool-sub001/internal/cache"
	"github.com/laithharzallah/Laithstool-sub001/internal/registry"
	"github.com/laithharzallah/Laithstool-sub001/internal/screen"
	"github.com/laithharzallah/Laithstool-sub001/internal/validate"
)

const serviceName = "due-diligence-screener"

type Config struct {
	Screener *screen.Screener
	Tasks    *screen.TaskStore
	Cache    *cache.Cache
	Logger   *slog.Logger
	Version  string
}

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	screener *screen.Screener
	tasks    *screen.TaskStore
	cache    *cache.Cache
	logger   *slog.Logger
	version  string
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	return &Handler{
		screener: cfg.Screener,
		tasks:    cfg.Tasks,
		cache:    cfg.Cache,
		logger:   cfg.Logger.With("component", "handlers"),
		version:  cfg.Version,
	}
}

// abortWithError maps domain errors onto HTTP statuses. Validation
// failures are the caller's fault; a missing registry entry is a 404;
// anything unexpected becomes a 500 with the detail logged, not leaked.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	var fieldErr *validate.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": fieldErr.Message,
			"field": fieldErr.Field,
		})
	case errors.Is(err, registry.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": "company not found in registry",
		})
	case errors.Is(err, registry.ErrNoCredentials):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "registry provider is not configured",
		})
	case errors.Is(err, cache.ErrCachedFailure):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error": "upstream lookup failed recently, retry later",
		})
	default:
		h.logger.Error("request failed",
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
	}
}

// Package router assembles the gin engine: recovery, logging, metrics
// and auth run on every route, then the API surface is registered.
package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/laithharzallah/Laithstool-sub001/internal/handlers"
	"github.com/laithharzallah/Laithstool-sub001/internal/middleware"
)

// ExcludedPaths bypass API-key auth: probes and scrapers do not carry
// credentials.
var ExcludedPaths = []string{
	"/api/health",
	"/metrics",
}

type Config struct {
	Handler *handlers.Handler
	Logger  *slog.Logger
	APIKey  string
}

func New(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	metricsMiddleware := middleware.NewMetricsMiddleware()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.WithLogging(cfg.Logger),
		metricsMiddleware.WithMetrics(),
		middleware.WithAPIKey(cfg.APIKey, ExcludedPaths, cfg.Logger),
	)

	h := cfg.Handler
	r.GET("/api/health", h.Health)
	r.GET("/metrics", gin.WrapH(metricsMiddleware))

	r.POST("/api/screen", h.ScreenCompany)
	r.POST("/api/screen_individual", h.ScreenIndividual)
	r.POST("/api/dart_lookup", h.DARTLookup)
	r.GET("/api/dart_search", h.DARTSearch)
	r.GET("/api/cache/stats", h.CacheStats)
	r.POST("/api/cache/clear", h.CacheClear)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/screen", h.StartScreening)
		v1.GET("/status/:task_id", h.TaskStatus)
		v1.GET("/result/:task_id", h.TaskResult)
	}

	return r
}

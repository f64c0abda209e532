package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/placescout/api/handler"
	"github.com/use-agent/placescout/api/middleware"
	"github.com/use-agent/placescout/cache"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLog
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(runner handler.Runner, cfg *config.Config, cc *cache.Cache, notifier *webhook.Notifier, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLog())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(runner, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/search", handler.Search(runner, cc, notifier, cfg.Search.Term))

	return r
}

// requestLog writes one slog line per request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"elapsed", time.Since(start),
		)
	}
}

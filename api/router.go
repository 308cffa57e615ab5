package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jobsift/api/handler"
	"github.com/use-agent/jobsift/api/middleware"
	"github.com/use-agent/jobsift/config"
	"github.com/use-agent/jobsift/engine"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring checks always work.
func NewRouter(eng engine.Engine, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Search
	protected.POST("/search", handler.Search(eng, cfg.Search, cfg.Engine))

	return r
}

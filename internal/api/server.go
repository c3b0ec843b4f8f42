package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/config"
	"github.com/shortloop/link-resolver/internal/httpserver"
	"github.com/shortloop/link-resolver/internal/logger"
)

// NewServer creates the HTTP server with all routes registered. done stops
// the rate limiter's background cleanup on shutdown.
func NewServer(cfg *config.Config, h Handlers, log logger.Logger, done <-chan struct{}) *httpserver.Server {
	serverCfg := &httpserver.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}

	rateLimitWindow := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second

	return httpserver.New(serverCfg, log, func(router *gin.Engine) {
		SetupRoutes(router, h, cfg.RateLimit.MaxCreatesPerMinute, rateLimitWindow, done)
	})
}

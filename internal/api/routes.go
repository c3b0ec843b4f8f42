// Package api wires the handlers into the HTTP server.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shortloop/link-resolver/internal/handler"
	"github.com/shortloop/link-resolver/internal/middleware"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Redirect  *handler.RedirectHandler
	Ephemeral *handler.EphemeralHandler
	Analytics *handler.AnalyticsHandler
	Domains   *handler.DomainsHandler
	Health    *handler.HealthHandler
}

// SetupRoutes registers all routes. The redirect orchestrator is the
// NoRoute fallback: every fixed route below wins before a path is ever
// considered a short link.
func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	maxCreatesPerMin int,
	rateLimitWindow time.Duration,
	done <-chan struct{},
) {
	router.GET("/health", h.Health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.GET("/analytics", h.Analytics.Report)
	apiGroup.DELETE("/domains/cache", h.Domains.InvalidateCache)

	create := apiGroup.Group("/links")
	create.Use(middleware.RateLimiter(maxCreatesPerMin, rateLimitWindow, done))
	create.POST("/ephemeral", h.Ephemeral.Create)

	// Everything else is a candidate short link.
	router.NoRoute(middleware.BotFilter(), h.Redirect.Handle)
}

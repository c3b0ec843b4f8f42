// Package handler holds the gin handlers: the redirect orchestrator and the
// small API surface around it.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/analytics"
	"github.com/shortloop/link-resolver/internal/ephemeral"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/metrics"
	"github.com/shortloop/link-resolver/internal/middleware"
	"github.com/shortloop/link-resolver/internal/resolver"
)

// excludedPrefixes are path prefixes that can never be short links; they are
// rejected before any domain or link lookup happens.
var excludedPrefixes = []string{"/api/", "/assets/", "/static/", "/.well-known/"}

// excludedPaths are exact asset paths served by the surrounding product.
var excludedPaths = map[string]struct{}{
	"/":            {},
	"/favicon.ico": {},
	"/robots.txt":  {},
	"/sitemap.xml": {},
}

// RedirectHandler is the per-request orchestrator. It classifies the
// hostname, tries the ephemeral store, falls through to slug resolution,
// and maps the outcome to an HTTP action. It is registered as the router's
// fallback so fixed routes always win first.
type RedirectHandler struct {
	domains   *resolver.DomainResolver
	slugs     *resolver.SlugResolver
	ephemeral *ephemeral.Store
	recorder  *analytics.Recorder
	log       logger.Logger
	now       func() time.Time
}

// NewRedirectHandler creates a RedirectHandler.
func NewRedirectHandler(
	domains *resolver.DomainResolver,
	slugs *resolver.SlugResolver,
	ephemeralStore *ephemeral.Store,
	recorder *analytics.Recorder,
	log logger.Logger,
) *RedirectHandler {
	return &RedirectHandler{
		domains:   domains,
		slugs:     slugs,
		ephemeral: ephemeralStore,
		recorder:  recorder,
		log:       log,
		now:       time.Now,
	}
}

// Handle resolves one request. A broken redirect must never crash the
// pipeline: any panic during resolution is recovered, logged with the
// attempted code, and converted to a decline.
func (h *RedirectHandler) Handle(c *gin.Context) {
	candidate, ok := candidateSlug(c.Request.URL.Path)
	if !ok {
		h.decline(c)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Redirect resolution panicked",
				logger.String("code", candidate),
				logger.Any("panic", r),
			)
			h.decline(c)
		}
	}()

	ctx := c.Request.Context()

	classification, err := h.domains.Classify(ctx, c.Request.Host)
	if err != nil {
		// Uncertain tenancy: decline rather than resolve in the wrong
		// namespace.
		h.decline(c)
		return
	}

	// Ephemeral codes are host-agnostic and checked first on every host.
	if res := h.ephemeral.Resolve(ctx, candidate); res.Action == ephemeral.ActionRedirect {
		c.Redirect(http.StatusFound, res.URL)
		return
	}

	var dom *resolver.Classification
	if classification.IsCustom {
		dom = &classification
	}

	outcome := h.slugs.Resolve(ctx, resolver.ResolveRequest{
		Slug:    candidate,
		Origin:  requestOrigin(c),
		Cookies: c.Request.Cookies(),
		Domain:  dom,
	})
	metrics.RedirectsTotal.WithLabelValues(outcome.Kind.String()).Inc()

	switch outcome.Kind {
	case resolver.OutcomeSuccess:
		h.recordClick(c, outcome)
		c.Redirect(http.StatusFound, outcome.URL)
	case resolver.OutcomePasswordRequired:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "password required",
			"slug":  outcome.Slug,
		})
	default:
		// Error, soft-404, and expired all carry a landing-state URL.
		c.Redirect(http.StatusFound, outcome.URL)
	}
}

// recordClick hands the event to the recorder without waiting. Expired and
// failed resolutions never reach here; bot traffic redirects but is not
// recorded.
func (h *RedirectHandler) recordClick(c *gin.Context, outcome resolver.Outcome) {
	if middleware.IsBot(c) {
		return
	}
	h.recorder.Record(analytics.EventFromRequest(c.Request, analytics.ClickContext{
		WorkspaceID:   outcome.WorkspaceID,
		WorkspaceSlug: outcome.WorkspaceSlug,
		LinkID:        outcome.LinkID,
		Slug:          outcome.Slug,
		URL:           outcome.URL,
	}, h.now()))
}

func (h *RedirectHandler) decline(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// candidateSlug extracts the single path segment a short link must be.
// Multi-segment paths, asset paths, and API paths are not ours to handle.
func candidateSlug(path string) (string, bool) {
	if _, excluded := excludedPaths[path]; excluded {
		return "", false
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return "", false
		}
	}

	candidate := strings.TrimPrefix(path, "/")
	if candidate == "" || strings.Contains(candidate, "/") || strings.Contains(candidate, ".") {
		return "", false
	}
	return candidate, true
}

func requestOrigin(c *gin.Context) string {
	scheme := "https"
	if proto := c.Request.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/resolver"
)

// DomainsHandler exposes custom domain cache invalidation to external
// update paths, so a freshly verified domain resolves before the 60-second
// TTL would have caught up.
type DomainsHandler struct {
	domains *resolver.DomainResolver
}

// NewDomainsHandler creates a DomainsHandler.
func NewDomainsHandler(domains *resolver.DomainResolver) *DomainsHandler {
	return &DomainsHandler{domains: domains}
}

// InvalidateCache clears one hostname from the local cache, or the whole
// cache when no domain parameter is given.
func (h *DomainsHandler) InvalidateCache(c *gin.Context) {
	h.domains.Invalidate(c.Query("domain"))
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

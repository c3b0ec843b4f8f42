package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/analytics"
	"github.com/shortloop/link-resolver/internal/logger"
)

// AnalyticsHandler serves near-real-time reports from the rolling index.
type AnalyticsHandler struct {
	index *analytics.RollingIndex
	log   logger.Logger
	now   func() time.Time
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(index *analytics.RollingIndex, log logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{index: index, log: log, now: time.Now}
}

// Report aggregates a workspace's events over a range. from/to are RFC3339
// query parameters; the range defaults to the trailing 24 hours, which is
// all the rolling index retains.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	workspaceID := c.Query("workspaceId")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspaceId is required"})
		return
	}

	now := h.now()
	from, to := now.Add(-24*time.Hour), now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = parsed
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
		return
	}

	report, err := h.index.Aggregate(c.Request.Context(), workspaceID, from, to)
	if err != nil {
		h.log.Error("Analytics aggregation failed",
			logger.String("workspace_id", workspaceID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

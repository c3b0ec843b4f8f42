package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/ephemeral"
	"github.com/shortloop/link-resolver/internal/logger"
)

// EphemeralHandler serves anonymous ephemeral link creation.
type EphemeralHandler struct {
	store *ephemeral.Store
	log   logger.Logger
}

// NewEphemeralHandler creates an EphemeralHandler.
func NewEphemeralHandler(store *ephemeral.Store, log logger.Logger) *EphemeralHandler {
	return &EphemeralHandler{store: store, log: log}
}

type createEphemeralRequest struct {
	URL string `json:"url" binding:"required"`
}

// Create mints a new self-expiring link for the caller's IP.
func (h *EphemeralHandler) Create(c *gin.Context) {
	var req createEphemeralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	link, err := h.store.Create(c.Request.Context(), req.URL, remoteIP(c))
	if err != nil {
		switch {
		case errors.Is(err, ephemeral.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) url"})
		case errors.Is(err, ephemeral.ErrTooManyLinks):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many active links for this ip"})
		default:
			h.log.Error("Ephemeral link creation failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create link"})
		}
		return
	}

	c.JSON(http.StatusCreated, link)
}

func remoteIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

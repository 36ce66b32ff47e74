package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// VAPIDResponse is what a browser needs to subscribe to assignment alerts.
type VAPIDResponse struct {
	PublicKey  string `json:"public_key"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// GetVAPIDPublicKey returns the application server key browsers subscribe with
// and how long an undelivered alert is kept by the push service.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		h.logger.Debug().Str("request_id", c.GetString("request_id")).Msg("vapid key requested but push is disabled")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, VAPIDResponse{PublicKey: h.webpush.VAPIDPublicKey, TTLSeconds: h.webpush.TTL})
}

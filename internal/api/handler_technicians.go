package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultTrackWindow = 24 * time.Hour
	defaultRunLimit    = 20
	maxRunLimit        = 200
)

// GetTechnicianTrack handles GET /api/technicians/:id/track?since=RFC3339.
// Without since the last 24 hours are returned.
func (h *Handler) GetTechnicianTrack(c *gin.Context) {
	id := c.Param("id")
	since := h.now().Add(-defaultTrackWindow)
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'since' timestamp format. Use RFC3339."})
			return
		}
		since = t
	}

	track, err := h.store.TechnicianTrack(c.Request.Context(), id, since)
	if err != nil {
		h.logger.Error().Err(err).Str("technician", id).Msg("track lookup failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve technician track"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicianId": id, "since": since.UTC(), "track": nonNil(track)})
}

// GetRuns handles GET /api/runs?limit=N.
func (h *Handler) GetRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.store.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve poll runs"})
		return
	}
	c.JSON(http.StatusOK, nonNil(runs))
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops-map-backend/internal/render"
)

// GetMap handles GET /api/map: one dashboard session rendered on a headless
// map with the query's filters and toggles.
func (h *Handler) GetMap(c *gin.Context) {
	req, err := render.ParseQuery(c.Request.URL.Query(), h.display)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.renderer.Render(c.Request.Context(), req)
	switch {
	case errors.Is(err, render.ErrNotShown):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("map render failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to render map"})
		return
	}

	// The upstream failure is still reported with the (empty) scene.
	status := http.StatusOK
	if res.View.Error != "" {
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

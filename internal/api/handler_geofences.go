package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListGeofences handles GET /api/geofences?active=true.
func (h *Handler) ListGeofences(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	fences, err := h.store.ListGeofences(c.Request.Context(), activeOnly)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve geofences"})
		return
	}
	c.JSON(http.StatusOK, fences)
}

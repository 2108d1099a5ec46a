package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FleetStats handles GET /api/fleet/stats.
func (h *Handler) FleetStats(c *gin.Context) {
	aggregates, ingest, err := h.tracker.FleetStats(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate fleet stats"})
		return
	}

	podOccupancy, podCapacity := h.coordinator.PodOccupancy()
	c.JSON(http.StatusOK, gin.H{
		"fleet":         aggregates,
		"ingest":        ingest,
		"pod_occupancy": podOccupancy,
		"pod_capacity":  podCapacity,
		"fences_loaded": h.evaluator.FenceCount(),
	})
}

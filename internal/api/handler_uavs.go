package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/model"
)

// uavResponse flattens a UAV with its computed docking state. DockedAt is
// derived from the active session record, never stored on the UAV itself.
type uavResponse struct {
	model.UAV
	DockedAt     *string `json:"docked_at_station"`
	DwellSeconds *int64  `json:"hibernation_dwell_seconds"`
}

// ListUAVs handles GET /api/uavs.
func (h *Handler) ListUAVs(c *gin.Context) {
	uavs, err := h.store.ListUAVs(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve uavs"})
		return
	}
	c.JSON(http.StatusOK, uavs)
}

// GetUAV handles GET /api/uavs/{uav_id}.
func (h *Handler) GetUAV(c *gin.Context) {
	uavID := c.Param("uav_id")

	uav, err := h.store.GetUAV(c.Request.Context(), uavID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "uav not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := uavResponse{UAV: *uav}

	if record, err := h.store.ActiveDockingRecord(c.Request.Context(), uavID); err == nil && record != nil {
		response.DockedAt = &record.StationID
	}
	if dwell, err := h.coordinator.HibernationDwell(uavID); err == nil {
		seconds := int64(dwell / time.Second)
		response.DwellSeconds = &seconds
	}

	c.JSON(http.StatusOK, response)
}

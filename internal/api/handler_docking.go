package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"uav-fleet-backend/internal/model"
)

type dockRequest struct {
	StationID string            `json:"station_id" binding:"required"`
	Purpose   model.DockPurpose `json:"purpose"`
}

// Dock handles POST /api/uavs/{uav_id}/dock.
func (h *Handler) Dock(c *gin.Context) {
	var req dockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Purpose == "" {
		req.Purpose = model.PurposeCharging
	}

	record, err := h.coordinator.Dock(c.Request.Context(), c.Param("uav_id"), req.StationID, req.Purpose)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "record": record})
}

// Undock handles POST /api/uavs/{uav_id}/undock.
func (h *Handler) Undock(c *gin.Context) {
	record, err := h.coordinator.Undock(c.Request.Context(), c.Param("uav_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

// EmergencyUndock handles POST /api/uavs/{uav_id}/undock/emergency.
func (h *Handler) EmergencyUndock(c *gin.Context) {
	record, err := h.coordinator.EmergencyUndock(c.Request.Context(), c.Param("uav_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

// JoinHibernation handles POST /api/uavs/{uav_id}/hibernate.
func (h *Handler) JoinHibernation(c *gin.Context) {
	uavID := c.Param("uav_id")
	if err := h.coordinator.JoinHibernation(c.Request.Context(), uavID); err != nil {
		abortWithError(c, err)
		return
	}

	occupancy, capacity := h.coordinator.PodOccupancy()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"pod_occupancy": occupancy,
		"pod_capacity":  capacity,
	})
}

// LeaveHibernation handles DELETE /api/uavs/{uav_id}/hibernate.
func (h *Handler) LeaveHibernation(c *gin.Context) {
	uavID := c.Param("uav_id")

	// Capture dwell before membership is released.
	dwell, _ := h.coordinator.HibernationDwell(uavID)

	if err := h.coordinator.LeaveHibernation(c.Request.Context(), uavID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"dwell_seconds": int64(dwell / time.Second),
	})
}

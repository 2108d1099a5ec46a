package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/parse"
	"uav-fleet-backend/internal/tracker"
)

// Lat/lon are pointers: binding:"required" on a plain float64 would
// reject the valid coordinate 0.
type positionRequest struct {
	Latitude     *float64   `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude    *float64   `json:"longitude" binding:"required,min=-180,max=180"`
	AltitudeM    float64    `json:"altitude_m"`
	Timestamp    *time.Time `json:"timestamp"`
	SpeedMPS     *float64   `json:"speed_mps"`
	HeadingDeg   *float64   `json:"heading_deg"`
	BatteryLevel *float64   `json:"battery_level"`
	AccuracyM    *float64   `json:"accuracy_m"`
	Source       string     `json:"source"`
}

func (r *positionRequest) toUpdate(uavID string) tracker.UpdateRequest {
	update := tracker.UpdateRequest{
		UAVID:        uavID,
		Latitude:     *r.Latitude,
		Longitude:    *r.Longitude,
		AltitudeM:    r.AltitudeM,
		SpeedMPS:     r.SpeedMPS,
		HeadingDeg:   r.HeadingDeg,
		BatteryLevel: r.BatteryLevel,
		AccuracyM:    r.AccuracyM,
		Source:       model.LocationSource(r.Source),
	}
	if r.Timestamp != nil {
		update.Timestamp = *r.Timestamp
	}
	return update
}

// UpdatePosition handles POST /api/uavs/{uav_id}/position.
func (h *Handler) UpdatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tracker.UpdatePosition(c.Request.Context(), req.toUpdate(c.Param("uav_id")))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"entry":      result.Entry,
		"violations": result.Violations,
	})
}

type bulkPositionItem struct {
	UAVID string `json:"uav_id" binding:"required"`
	positionRequest
}

// BulkUpdate handles POST /api/positions/bulk. Items succeed or fail
// independently; the response reports per-item errors.
func (h *Handler) BulkUpdate(c *gin.Context) {
	var items []bulkPositionItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make([]tracker.UpdateRequest, len(items))
	for i, item := range items {
		updates[i] = item.toUpdate(item.UAVID)
	}

	result := h.tracker.BulkUpdate(c.Request.Context(), updates)
	c.JSON(http.StatusOK, result)
}

// History handles GET /api/uavs/{uav_id}/history?since=&until=.
func (h *Handler) History(c *gin.Context) {
	since, until, err := parse.TimeRange(c.Query("since"), c.Query("until"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.tracker.History(c.Request.Context(), c.Param("uav_id"), since, until)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

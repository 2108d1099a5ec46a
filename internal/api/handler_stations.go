package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/parse"
)

// stationResponse flattens a station with its live occupancy.
type stationResponse struct {
	model.DockingStation
	Occupancy int  `json:"occupancy"`
	IsFull    bool `json:"is_full"`
}

// ListStations handles GET /api/stations.
func (h *Handler) ListStations(c *gin.Context) {
	stations, err := h.store.ListStations(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stations"})
		return
	}

	response := make([]stationResponse, 0, len(stations))
	for _, station := range stations {
		occupancy, capacity, _ := h.coordinator.StationOccupancy(station.ID)
		response = append(response, stationResponse{
			DockingStation: station,
			Occupancy:      occupancy,
			IsFull:         capacity > 0 && occupancy >= capacity,
		})
	}
	c.JSON(http.StatusOK, response)
}

// NearestStation handles GET /api/stations/nearest?lat=&lon=&capability=.
func (h *Handler) NearestStation(c *gin.Context) {
	point, err := parse.LatLon(c.Query("lat") + "," + c.Query("lon"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capability := model.Capability(c.Query("capability"))
	station, err := h.coordinator.FindOptimalStation(c.Request.Context(), point, capability)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if station == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no station qualifies"})
		return
	}

	occupancy, capacity, _ := h.coordinator.StationOccupancy(station.ID)
	c.JSON(http.StatusOK, stationResponse{
		DockingStation: *station,
		Occupancy:      occupancy,
		IsFull:         capacity > 0 && occupancy >= capacity,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"uav-fleet-backend/internal/docking"
	"uav-fleet-backend/internal/geofence"
	"uav-fleet-backend/internal/store"
	"uav-fleet-backend/internal/tracker"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	coordinator *docking.Coordinator
	tracker     *tracker.Tracker
	evaluator   *geofence.Evaluator
	webpush     *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, c *docking.Coordinator, t *tracker.Tracker, e *geofence.Evaluator, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:       s,
		coordinator: c,
		tracker:     t,
		evaluator:   e,
		webpush:     webpushOptions,
	}
}

// abortWithError maps engine sentinels onto HTTP statuses. Capacity and
// state conflicts are 409s with the engine's actionable message so callers
// can retry elsewhere.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, docking.ErrUAVNotFound),
		errors.Is(err, docking.ErrStationNotFound),
		errors.Is(err, tracker.ErrUAVNotFound):
		status = http.StatusNotFound
	case errors.Is(err, docking.ErrStationFull),
		errors.Is(err, docking.ErrPodFull),
		errors.Is(err, docking.ErrAlreadyDocked),
		errors.Is(err, docking.ErrNoActiveDocking),
		errors.Is(err, docking.ErrStationNotOperational),
		errors.Is(err, docking.ErrAlreadyHibernating),
		errors.Is(err, docking.ErrNotHibernating),
		errors.Is(err, docking.ErrInvalidTransition):
		status = http.StatusConflict
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// Package geofence evaluates UAV positions against the active fence set
// and owns the per-fence violation counters.
package geofence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"uav-fleet-backend/internal/geo"
	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/store"
)

var violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geofence_violations_total",
	Help: "Geofence violations detected, by fence and boundary type.",
}, []string{"fence", "boundary"})

// Violation reports one fence a point violated.
type Violation struct {
	FenceID  string             `json:"fence_id"`
	Name     string             `json:"name"`
	Boundary model.BoundaryType `json:"boundary"`
	Priority int                `json:"priority"`
	At       time.Time          `json:"at"`
}

// Evaluator holds the active fence set in memory and checks positions
// against it. Fence geometry is externally managed; Reload picks up
// changes. The evaluator is the only writer of violation counters.
type Evaluator struct {
	store store.Store

	mu     sync.RWMutex
	fences []*model.Geofence
}

// NewEvaluator creates an Evaluator over the given store. Call Reload
// before the first Evaluate.
func NewEvaluator(s store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// Reload replaces the in-memory fence set with the active fences from the
// store.
func (e *Evaluator) Reload(ctx context.Context) error {
	fences, err := e.store.ListGeofences(ctx, true)
	if err != nil {
		return err
	}

	loaded := make([]*model.Geofence, len(fences))
	for i := range fences {
		loaded[i] = &fences[i]
	}

	e.mu.Lock()
	e.fences = loaded
	e.mu.Unlock()
	return nil
}

// FenceCount returns the number of fences currently loaded.
func (e *Evaluator) FenceCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fences)
}

// Evaluate checks point against every loaded fence. An INCLUSION fence is
// violated when the point is outside it, an EXCLUSION fence when the point
// is inside. Multiple fences may register violations for the same point.
// Counters are bumped in memory and persisted; a persistence failure is
// logged but does not suppress the violation report.
func (e *Evaluator) Evaluate(ctx context.Context, point geo.Point) []Violation {
	e.mu.RLock()
	fences := e.fences
	e.mu.RUnlock()

	now := time.Now().UTC()
	var violations []Violation

	for _, fence := range fences {
		inside, ok := e.contains(fence, point)
		if !ok {
			continue
		}

		violated := false
		switch fence.Boundary {
		case model.BoundaryInclusion:
			violated = !inside
		case model.BoundaryExclusion:
			violated = inside
		}
		if !violated {
			continue
		}

		violations = append(violations, Violation{
			FenceID:  fence.ID,
			Name:     fence.Name,
			Boundary: fence.Boundary,
			Priority: fence.Priority,
			At:       now,
		})
		e.recordViolation(ctx, fence, now)
	}

	return violations
}

// contains computes geometric containment. The second return value is
// false when the fence geometry is malformed; such fences are logged and
// skipped rather than failing every ingest that touches them.
func (e *Evaluator) contains(fence *model.Geofence, point geo.Point) (bool, bool) {
	switch fence.Geometry {
	case model.GeometryCircle:
		center := geo.Point{Lat: fence.CenterLat, Lon: fence.CenterLon}
		return geo.InsideCircle(point, center, fence.RadiusM), true
	case model.GeometryPolygon:
		ring, err := fence.Ring()
		if err != nil {
			log.Printf("Skipping geofence %s: %v", fence.ID, err)
			return false, false
		}
		return geo.InsidePolygon(point, ring), true
	default:
		log.Printf("Skipping geofence %s: unknown geometry %q", fence.ID, fence.Geometry)
		return false, false
	}
}

func (e *Evaluator) recordViolation(ctx context.Context, fence *model.Geofence, at time.Time) {
	e.mu.Lock()
	fence.ViolationCount++
	t := at
	fence.LastViolationAt = &t
	e.mu.Unlock()

	violationsTotal.WithLabelValues(fence.Name, string(fence.Boundary)).Inc()

	if err := e.store.RecordViolation(ctx, fence.ID, at); err != nil {
		log.Printf("Failed to persist violation for geofence %s: %v", fence.ID, err)
	}
}

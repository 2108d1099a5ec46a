// Package tracker ingests position updates: it owns the UAV live-position
// snapshot, appends the location trail, and feeds new points to the
// geofence evaluator.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/geo"
	"uav-fleet-backend/internal/geofence"
	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/notification"
	"uav-fleet-backend/internal/store"
)

// ErrUAVNotFound reports a position update for an unregistered vehicle.
var ErrUAVNotFound = errors.New("uav not found")

var positionUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "position_updates_total",
	Help: "Position updates ingested, by outcome.",
}, []string{"outcome"})

// AlertSink receives violation alerts for asynchronous delivery. Satisfied
// by notification.WorkerPool; tests substitute their own.
type AlertSink interface {
	Dispatch(alert notification.ViolationAlert)
}

// UpdateRequest is one inbound position fix. Optional fields are pointers;
// Timestamp defaults to the ingest time when zero. A late update with an
// older timestamp is still appended and still overwrites the live
// snapshot: the snapshot reflects the most recently applied update, not
// the newest timestamp.
type UpdateRequest struct {
	UAVID        string
	Latitude     float64
	Longitude    float64
	AltitudeM    float64
	Timestamp    time.Time
	SpeedMPS     *float64
	HeadingDeg   *float64
	BatteryLevel *float64
	AccuracyM    *float64
	Source       model.LocationSource
}

// UpdateResult carries the appended entry and any geofence violations the
// new point triggered.
type UpdateResult struct {
	Entry      model.LocationHistory `json:"entry"`
	Violations []geofence.Violation  `json:"violations"`
}

// BulkItemError reports a single failed item inside a batch.
type BulkItemError struct {
	Index int    `json:"index"`
	UAVID string `json:"uav_id"`
	Error string `json:"error"`
}

// BulkResult summarizes a batch: items succeed or fail independently.
type BulkResult struct {
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
	Errors       []BulkItemError `json:"errors,omitempty"`
}

// Tracker applies position updates. Single writer per UAV is the caller's
// concern at the API layer; the tracker's own state is safe for concurrent
// use.
type Tracker struct {
	store     store.Store
	evaluator *geofence.Evaluator
	alerts    AlertSink
	stats     IngestStats
}

// New creates a Tracker. alerts may be nil when no delivery channel is
// configured.
func New(s store.Store, evaluator *geofence.Evaluator, alerts AlertSink) *Tracker {
	return &Tracker{store: s, evaluator: evaluator, alerts: alerts}
}

// UpdatePosition applies one position fix: snapshot overwrite, history
// append, geofence evaluation, derived aggregates.
func (t *Tracker) UpdatePosition(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	result, err := t.apply(ctx, req)
	if err != nil {
		t.stats.recordFailure()
		positionUpdatesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	t.stats.recordUpdate(len(result.Violations))
	positionUpdatesTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (t *Tracker) apply(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	uav, err := t.store.GetUAV(ctx, req.UAVID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUAVNotFound, req.UAVID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}
	source := req.Source
	if source == "" {
		source = model.SourceGPS
	}

	entry := model.LocationHistory{
		UAVID:     req.UAVID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		AltitudeM: req.AltitudeM,
		Timestamp: ts,
		Source:    source,
	}
	if req.SpeedMPS != nil {
		entry.SpeedMPS = *req.SpeedMPS
	}
	if req.HeadingDeg != nil {
		entry.HeadingDeg = *req.HeadingDeg
	}
	if req.BatteryLevel != nil {
		entry.BatteryLevel = *req.BatteryLevel
	} else {
		entry.BatteryLevel = uav.BatteryLevel
	}
	if req.AccuracyM != nil {
		entry.AccuracyM = *req.AccuracyM
	}

	// Live snapshot: latest applied update wins, no timestamp guard.
	uav.Latitude = req.Latitude
	uav.Longitude = req.Longitude
	uav.AltitudeM = req.AltitudeM
	uav.PositionAt = &now
	if req.BatteryLevel != nil {
		uav.BatteryLevel = *req.BatteryLevel
	}
	if req.SpeedMPS != nil {
		uav.LastSpeedMPS = *req.SpeedMPS
	}
	if req.AltitudeM > uav.MaxAltitudeM {
		uav.MaxAltitudeM = req.AltitudeM
	}

	if err := t.store.SaveUAVSnapshot(ctx, uav); err != nil {
		return nil, fmt.Errorf("failed to save uav snapshot: %w", err)
	}
	if err := t.store.AppendLocation(ctx, &entry); err != nil {
		return nil, fmt.Errorf("failed to append location history: %w", err)
	}

	violations := t.evaluator.Evaluate(ctx, geo.Point{Lat: req.Latitude, Lon: req.Longitude})
	if len(violations) > 0 && t.alerts != nil {
		for _, v := range violations {
			t.alerts.Dispatch(notification.ViolationAlert{
				UAVID:     uav.ID,
				Callsign:  uav.Callsign,
				FenceID:   v.FenceID,
				FenceName: v.Name,
				Boundary:  string(v.Boundary),
				At:        v.At,
			})
		}
	}

	return &UpdateResult{Entry: entry, Violations: violations}, nil
}

// BulkUpdate applies each item independently. One unknown UAV does not
// abort the batch; every item reports its own outcome.
func (t *Tracker) BulkUpdate(ctx context.Context, reqs []UpdateRequest) BulkResult {
	t.stats.recordBatch()

	var result BulkResult
	for i, req := range reqs {
		if _, err := t.UpdatePosition(ctx, req); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, BulkItemError{
				Index: i,
				UAVID: req.UAVID,
				Error: err.Error(),
			})
			continue
		}
		result.SuccessCount++
	}
	return result
}

// History returns the location trail for a UAV, newest first, optionally
// bounded by [since, until].
func (t *Tracker) History(ctx context.Context, uavID string, since, until *time.Time) ([]model.LocationHistory, error) {
	if _, err := t.store.GetUAV(ctx, uavID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUAVNotFound, uavID)
		}
		return nil, err
	}
	return t.store.ListLocations(ctx, uavID, since, until)
}

// Stats returns a snapshot of the ingest counters.
func (t *Tracker) Stats() StatsSnapshot {
	return t.stats.Snapshot()
}

// FleetStats combines database aggregates with the ingest counters.
func (t *Tracker) FleetStats(ctx context.Context) (*store.FleetAggregates, StatsSnapshot, error) {
	agg, err := t.store.FleetAggregates(ctx)
	if err != nil {
		return nil, StatsSnapshot{}, err
	}
	return agg, t.stats.Snapshot(), nil
}

package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/db"
	"uav-fleet-backend/internal/geofence"
	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/notification"
	"uav-fleet-backend/internal/store"
)

// captureSink records dispatched alerts in place of the webpush pool.
type captureSink struct {
	mu     sync.Mutex
	alerts []notification.ViolationAlert
}

func (c *captureSink) Dispatch(alert notification.ViolationAlert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func newTestStore(t *testing.T) store.Store {
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

func newTracker(t *testing.T) (*Tracker, store.Store, *captureSink) {
	s := newTestStore(t)
	evaluator := geofence.NewEvaluator(s)
	require.NoError(t, evaluator.Reload(context.Background()))
	sink := &captureSink{}
	return New(s, evaluator, sink), s, sink
}

func seedUAV(t *testing.T, s store.Store, id string) {
	require.NoError(t, s.DB().Create(&model.UAV{
		ID:           id,
		Callsign:     "CS-" + id,
		AuthStatus:   model.AuthAuthorized,
		OpStatus:     model.OpInFlight,
		BatteryLevel: 90,
	}).Error)
}

func floatPtr(f float64) *float64 { return &f }

func TestUpdatePositionSnapshotAndHistory(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	ctx := context.Background()

	result, err := trk.UpdatePosition(ctx, UpdateRequest{
		UAVID:        "uav-1",
		Latitude:     40.7128,
		Longitude:    -74.0060,
		AltitudeM:    120,
		SpeedMPS:     floatPtr(14.5),
		BatteryLevel: floatPtr(85),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
	assert.Equal(t, model.SourceGPS, result.Entry.Source, "source defaults to GPS")
	assert.False(t, result.Entry.Timestamp.IsZero(), "timestamp defaults to ingest time")

	uav, err := s.GetUAV(ctx, "uav-1")
	require.NoError(t, err)
	assert.Equal(t, 40.7128, uav.Latitude)
	assert.Equal(t, -74.0060, uav.Longitude)
	assert.Equal(t, 120.0, uav.AltitudeM)
	assert.Equal(t, 85.0, uav.BatteryLevel)
	assert.Equal(t, 14.5, uav.LastSpeedMPS)
	assert.Equal(t, 120.0, uav.MaxAltitudeM)
	require.NotNil(t, uav.PositionAt)

	entries, err := trk.History(ctx, "uav-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 85.0, entries[0].BatteryLevel)
}

func TestUpdatePositionMaxAltitudeOnlyRises(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	ctx := context.Background()

	_, err := trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 1, Longitude: 1, AltitudeM: 200})
	require.NoError(t, err)
	_, err = trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 1, Longitude: 1, AltitudeM: 50})
	require.NoError(t, err)

	uav, err := s.GetUAV(ctx, "uav-1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, uav.AltitudeM, "snapshot tracks the latest update")
	assert.Equal(t, 200.0, uav.MaxAltitudeM, "max altitude never decreases")
}

func TestUpdatePositionLatestAppliedWins(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	ctx := context.Background()

	newer := time.Now().UTC()
	older := newer.Add(-10 * time.Minute)

	_, err := trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 1, Longitude: 1, Timestamp: newer})
	require.NoError(t, err)

	// A stale fix applied later still overwrites the snapshot; the
	// history keeps both points.
	_, err = trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 2, Longitude: 2, Timestamp: older})
	require.NoError(t, err)

	uav, err := s.GetUAV(ctx, "uav-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, uav.Latitude)

	entries, err := trk.History(ctx, "uav-1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUpdatePositionUnknownUAV(t *testing.T) {
	trk, _, _ := newTracker(t)

	_, err := trk.UpdatePosition(context.Background(), UpdateRequest{UAVID: "ghost", Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, ErrUAVNotFound)

	stats := trk.Stats()
	assert.Equal(t, uint64(0), stats.TotalUpdates)
	assert.Equal(t, uint64(1), stats.FailedUpdates)
}

func TestUpdatePositionDispatchesViolationAlerts(t *testing.T) {
	trk, s, sink := newTracker(t)
	seedUAV(t, s, "uav-1")
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&model.Geofence{
		ID:        "keep-in",
		Name:      "Operations Area",
		Geometry:  model.GeometryCircle,
		CenterLat: 40.7128,
		CenterLon: -74.0060,
		RadiusM:   1000,
		Boundary:  model.BoundaryInclusion,
		Active:    true,
	}).Error)
	require.NoError(t, trk.evaluator.Reload(ctx))

	result, err := trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 40.7300, Longitude: -74.0300})
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)

	require.Equal(t, 1, sink.count())
	assert.Equal(t, "uav-1", sink.alerts[0].UAVID)
	assert.Equal(t, "CS-uav-1", sink.alerts[0].Callsign)
	assert.Equal(t, "keep-in", sink.alerts[0].FenceID)

	stats := trk.Stats()
	assert.Equal(t, uint64(1), stats.ViolationsDetected)
}

func TestBulkUpdatePartialFailure(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	seedUAV(t, s, "uav-2")
	ctx := context.Background()

	result := trk.BulkUpdate(ctx, []UpdateRequest{
		{UAVID: "uav-1", Latitude: 1, Longitude: 1},
		{UAVID: "ghost", Latitude: 2, Longitude: 2},
		{UAVID: "uav-2", Latitude: 3, Longitude: 3},
	})

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "ghost", result.Errors[0].UAVID)

	// The failing item did not abort its neighbors.
	entries, err := trk.History(ctx, "uav-2", nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	stats := trk.Stats()
	assert.Equal(t, uint64(1), stats.BulkBatches)
}

func TestHistoryNewestFirstAndWindowed(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := trk.UpdatePosition(ctx, UpdateRequest{
			UAVID:     "uav-1",
			Latitude:  float64(i),
			Longitude: float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := trk.History(ctx, "uav-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 2.0, entries[0].Latitude, "newest first")
	assert.Equal(t, 0.0, entries[2].Latitude)

	since := base.Add(30 * time.Second)
	until := base.Add(90 * time.Second)
	entries, err = trk.History(ctx, "uav-1", &since, &until)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1.0, entries[0].Latitude)
}

func TestHistoryUnknownUAV(t *testing.T) {
	trk, _, _ := newTracker(t)

	_, err := trk.History(context.Background(), "ghost", nil, nil)
	assert.ErrorIs(t, err, ErrUAVNotFound)
}

func TestFleetStats(t *testing.T) {
	trk, s, _ := newTracker(t)
	seedUAV(t, s, "uav-1")
	seedUAV(t, s, "uav-2")
	ctx := context.Background()

	_, err := trk.UpdatePosition(ctx, UpdateRequest{UAVID: "uav-1", Latitude: 1, Longitude: 1, AltitudeM: 300})
	require.NoError(t, err)

	agg, stats, err := trk.FleetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.TotalUAVs)
	assert.Equal(t, int64(2), agg.ByOpStatus[model.OpInFlight])
	assert.Equal(t, 300.0, agg.MaxAltitudeM)
	assert.Equal(t, uint64(1), stats.TotalUpdates)
}

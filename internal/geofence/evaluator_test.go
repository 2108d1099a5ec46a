package geofence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/db"
	"uav-fleet-backend/internal/geo"
	"uav-fleet-backend/internal/model"
	"uav-fleet-backend/internal/store"
)

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

func newEvaluator(t *testing.T, fences ...model.Geofence) (*Evaluator, store.Store) {
	s := newTestStore(t)
	for i := range fences {
		require.NoError(t, s.DB().Create(&fences[i]).Error)
	}

	e := NewEvaluator(s)
	require.NoError(t, e.Reload(context.Background()))
	return e, s
}

func circleFence(id string, boundary model.BoundaryType, lat, lon, radiusM float64) model.Geofence {
	return model.Geofence{
		ID:        id,
		Name:      id,
		Geometry:  model.GeometryCircle,
		CenterLat: lat,
		CenterLon: lon,
		RadiusM:   radiusM,
		Boundary:  boundary,
		Active:    true,
	}
}

func TestEvaluateInclusionCircle(t *testing.T) {
	// 1km INCLUSION fence over lower Manhattan.
	e, _ := newEvaluator(t, circleFence("nyc-ops", model.BoundaryInclusion, 40.7128, -74.0060, 1000))

	// Exactly at the center: no violation.
	violations := e.Evaluate(context.Background(), geo.Point{Lat: 40.7128, Lon: -74.0060})
	assert.Empty(t, violations)

	// ~2.7km away: outside the inclusion zone, violates.
	violations = e.Evaluate(context.Background(), geo.Point{Lat: 40.7300, Lon: -74.0300})
	require.Len(t, violations, 1)
	assert.Equal(t, "nyc-ops", violations[0].FenceID)
	assert.Equal(t, model.BoundaryInclusion, violations[0].Boundary)
}

func TestEvaluateExclusionPolygon(t *testing.T) {
	fence := model.Geofence{
		ID:       "no-fly",
		Name:     "no-fly",
		Boundary: model.BoundaryExclusion,
		Active:   true,
	}
	require.NoError(t, fence.SetRing([]geo.Point{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
	}))

	e, _ := newEvaluator(t, fence)

	violations := e.Evaluate(context.Background(), geo.Point{Lat: 5, Lon: 5})
	require.Len(t, violations, 1, "inside an exclusion polygon violates")
	assert.Equal(t, "no-fly", violations[0].FenceID)

	violations = e.Evaluate(context.Background(), geo.Point{Lat: 20, Lon: 20})
	assert.Empty(t, violations, "outside an exclusion polygon is fine")
}

func TestEvaluateSkipsInactiveFences(t *testing.T) {
	inactive := circleFence("dormant", model.BoundaryExclusion, 0, 0, 100000)
	inactive.Active = false

	e, s := newEvaluator(t, inactive)
	assert.Equal(t, 0, e.FenceCount(), "Reload only picks up active fences")

	violations := e.Evaluate(context.Background(), geo.Point{Lat: 0, Lon: 0})
	assert.Empty(t, violations)

	var reloaded model.Geofence
	require.NoError(t, s.DB().First(&reloaded, "id = ?", "dormant").Error)
	assert.Equal(t, int64(0), reloaded.ViolationCount, "inactive fences never count violations")
}

func TestEvaluateMultipleFencesRegisterIndependently(t *testing.T) {
	e, _ := newEvaluator(t,
		circleFence("keep-in", model.BoundaryInclusion, 40.7128, -74.0060, 500),
		circleFence("keep-out", model.BoundaryExclusion, 40.7300, -74.0300, 5000),
	)

	// Point is outside the inclusion circle AND inside the exclusion
	// circle: both fences register.
	violations := e.Evaluate(context.Background(), geo.Point{Lat: 40.7300, Lon: -74.0300})
	require.Len(t, violations, 2)

	ids := []string{violations[0].FenceID, violations[1].FenceID}
	assert.ElementsMatch(t, []string{"keep-in", "keep-out"}, ids)
}

func TestEvaluatePersistsViolationCounters(t *testing.T) {
	e, s := newEvaluator(t, circleFence("zone", model.BoundaryInclusion, 40.7128, -74.0060, 1000))

	outside := geo.Point{Lat: 40.7300, Lon: -74.0300}
	e.Evaluate(context.Background(), outside)
	e.Evaluate(context.Background(), outside)
	e.Evaluate(context.Background(), geo.Point{Lat: 40.7128, Lon: -74.0060})

	var fence model.Geofence
	require.NoError(t, s.DB().First(&fence, "id = ?", "zone").Error)
	assert.Equal(t, int64(2), fence.ViolationCount)
	require.NotNil(t, fence.LastViolationAt)
}

func TestEvaluateCircleBoundaryIsInside(t *testing.T) {
	center := geo.Point{Lat: 0, Lon: 0}
	onBoundary := geo.Point{Lat: 0, Lon: 0.001}
	radius := geo.Distance(onBoundary, center)

	e, _ := newEvaluator(t, circleFence("edge", model.BoundaryInclusion, 0, 0, radius))

	violations := e.Evaluate(context.Background(), onBoundary)
	assert.Empty(t, violations, "a point exactly on the radius is inside")
}

func TestEvaluateSkipsMalformedPolygon(t *testing.T) {
	e, _ := newEvaluator(t, model.Geofence{
		ID:           "broken",
		Name:         "broken",
		Geometry:     model.GeometryPolygon,
		VerticesJSON: "not json",
		Boundary:     model.BoundaryExclusion,
		Active:       true,
	})

	// A malformed fence is skipped, not fatal to the whole evaluation.
	assert.NotPanics(t, func() {
		violations := e.Evaluate(context.Background(), geo.Point{Lat: 1, Lon: 1})
		assert.Empty(t, violations)
	})
}

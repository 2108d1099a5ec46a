package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"uav-fleet-backend/config"
	"uav-fleet-backend/internal/db"
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

func TestPruneOnceRemovesOnlyExpiredEntries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DB().Create(&model.UAV{ID: "uav-1", Callsign: "CS-1"}).Error)

	now := time.Now().UTC()
	entries := []model.LocationHistory{
		{UAVID: "uav-1", Latitude: 1, Longitude: 1, Timestamp: now.AddDate(0, 0, -45)},
		{UAVID: "uav-1", Latitude: 2, Longitude: 2, Timestamp: now.AddDate(0, 0, -31)},
		{UAVID: "uav-1", Latitude: 3, Longitude: 3, Timestamp: now.AddDate(0, 0, -5)},
		{UAVID: "uav-1", Latitude: 4, Longitude: 4, Timestamp: now},
	}
	for i := range entries {
		require.NoError(t, s.AppendLocation(context.Background(), &entries[i]))
	}

	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.MaxAgeDays = 30

	svc := NewService(cfg, s)
	svc.PruneOnce(context.Background())

	remaining, err := s.ListLocations(context.Background(), "uav-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, 4.0, remaining[0].Latitude, "newest entry survives")
	assert.Equal(t, 3.0, remaining[1].Latitude)
}

func TestRunDisabledReturnsImmediately(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retention.Enabled = false

	svc := NewService(cfg, newTestStore(t))

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disabled retention service did not return")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.MaxAgeDays = 30
	cfg.Retention.Interval = time.Hour

	svc := NewService(cfg, newTestStore(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention service did not stop on cancel")
	}
}

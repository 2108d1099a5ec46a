package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"uav-fleet-backend/internal/model"
)

// Store defines the persistence boundary the engine calls into. Every
// method is a synchronous call; retry policy belongs to the caller.
type Store interface {
	DB() *gorm.DB

	GetUAV(ctx context.Context, id string) (*model.UAV, error)
	ListUAVs(ctx context.Context) ([]model.UAV, error)
	SaveUAVSnapshot(ctx context.Context, uav *model.UAV) error
	UpdateUAVStatus(ctx context.Context, id string, status model.OpStatus) error

	GetStation(ctx context.Context, id string) (*model.DockingStation, error)
	ListStations(ctx context.Context) ([]model.DockingStation, error)

	ActiveDockingRecord(ctx context.Context, uavID string) (*model.DockingRecord, error)
	ListActiveDockingRecords(ctx context.Context) ([]model.DockingRecord, error)
	CreateDockingSession(ctx context.Context, record *model.DockingRecord, status model.OpStatus) error
	SealDockingSession(ctx context.Context, record *model.DockingRecord, status model.OpStatus) error

	AppendLocation(ctx context.Context, entry *model.LocationHistory) error
	ListLocations(ctx context.Context, uavID string, since, until *time.Time) ([]model.LocationHistory, error)
	PruneLocationHistory(ctx context.Context, cutoff time.Time) (int64, error)

	ListGeofences(ctx context.Context, activeOnly bool) ([]model.Geofence, error)
	RecordViolation(ctx context.Context, fenceID string, at time.Time) error

	FleetAggregates(ctx context.Context) (*FleetAggregates, error)
}

// gormStore implements Store on GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetUAV(ctx context.Context, id string) (*model.UAV, error) {
	var uav model.UAV
	if err := s.db.WithContext(ctx).First(&uav, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &uav, nil
}

func (s *gormStore) ListUAVs(ctx context.Context) ([]model.UAV, error) {
	var uavs []model.UAV
	if err := s.db.WithContext(ctx).Order("callsign").Find(&uavs).Error; err != nil {
		return nil, err
	}
	return uavs, nil
}

// SaveUAVSnapshot persists the live-position columns and derived
// aggregates of a UAV after a position update.
func (s *gormStore) SaveUAVSnapshot(ctx context.Context, uav *model.UAV) error {
	return s.db.WithContext(ctx).Model(&model.UAV{}).
		Where("id = ?", uav.ID).
		Updates(map[string]any{
			"latitude":       uav.Latitude,
			"longitude":      uav.Longitude,
			"altitude_m":     uav.AltitudeM,
			"position_at":    uav.PositionAt,
			"battery_level":  uav.BatteryLevel,
			"max_altitude_m": uav.MaxAltitudeM,
			"last_speed_mps": uav.LastSpeedMPS,
		}).Error
}

func (s *gormStore) UpdateUAVStatus(ctx context.Context, id string, status model.OpStatus) error {
	return s.db.WithContext(ctx).Model(&model.UAV{}).
		Where("id = ?", id).
		Update("op_status", status).Error
}

func (s *gormStore) GetStation(ctx context.Context, id string) (*model.DockingStation, error) {
	var station model.DockingStation
	if err := s.db.WithContext(ctx).First(&station, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

func (s *gormStore) ListStations(ctx context.Context) ([]model.DockingStation, error) {
	var stations []model.DockingStation
	if err := s.db.WithContext(ctx).Order("name").Find(&stations).Error; err != nil {
		return nil, err
	}
	return stations, nil
}

// ActiveDockingRecord returns the open session for a UAV, or (nil, nil)
// when there is none.
func (s *gormStore) ActiveDockingRecord(ctx context.Context, uavID string) (*model.DockingRecord, error) {
	var record model.DockingRecord
	err := s.db.WithContext(ctx).
		Where("uav_id = ? AND undock_time IS NULL", uavID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *gormStore) ListActiveDockingRecords(ctx context.Context) ([]model.DockingRecord, error) {
	var records []model.DockingRecord
	if err := s.db.WithContext(ctx).Where("undock_time IS NULL").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CreateDockingSession writes the new record and the UAV status change in
// one transaction, so a failed status write never leaves an orphan open
// session behind.
func (s *gormStore) CreateDockingSession(ctx context.Context, record *model.DockingRecord, status model.OpStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create docking record for uav %s: %w", record.UAVID, err)
		}
		if err := tx.Model(&model.UAV{}).Where("id = ?", record.UAVID).
			Update("op_status", status).Error; err != nil {
			return fmt.Errorf("failed to update uav %s status: %w", record.UAVID, err)
		}
		return nil
	})
}

// SealDockingSession closes an open record and restores the UAV status
// transactionally. The record must already carry UndockTime and Status.
func (s *gormStore) SealDockingSession(ctx context.Context, record *model.DockingRecord, status model.OpStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.DockingRecord{}).
			Where("id = ? AND undock_time IS NULL", record.ID).
			Updates(map[string]any{
				"undock_time":          record.UndockTime,
				"status":               record.Status,
				"battery_on_departure": record.BatteryOnDeparture,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to seal docking record %s: %w", record.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&model.UAV{}).Where("id = ?", record.UAVID).
			Update("op_status", status).Error; err != nil {
			return fmt.Errorf("failed to update uav %s status: %w", record.UAVID, err)
		}
		return nil
	})
}

func (s *gormStore) AppendLocation(ctx context.Context, entry *model.LocationHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *gormStore) ListLocations(ctx context.Context, uavID string, since, until *time.Time) ([]model.LocationHistory, error) {
	q := s.db.WithContext(ctx).Where("uav_id = ?", uavID)
	if since != nil {
		q = q.Where("timestamp >= ?", *since)
	}
	if until != nil {
		q = q.Where("timestamp <= ?", *until)
	}

	var entries []model.LocationHistory
	if err := q.Order("timestamp DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *gormStore) PruneLocationHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&model.LocationHistory{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) ListGeofences(ctx context.Context, activeOnly bool) ([]model.Geofence, error) {
	q := s.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var fences []model.Geofence
	if err := q.Order("priority DESC, name").Find(&fences).Error; err != nil {
		return nil, err
	}
	return fences, nil
}

// RecordViolation bumps the counter in SQL rather than read-modify-write,
// so concurrent evaluations never lose increments.
func (s *gormStore) RecordViolation(ctx context.Context, fenceID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Geofence{}).
		Where("id = ?", fenceID).
		Updates(map[string]any{
			"violation_count":   gorm.Expr("violation_count + 1"),
			"last_violation_at": at,
		}).Error
}

func (s *gormStore) FleetAggregates(ctx context.Context) (*FleetAggregates, error) {
	agg := &FleetAggregates{ByOpStatus: make(map[model.OpStatus]int64)}

	type statusRow struct {
		OpStatus model.OpStatus
		Count    int64
	}
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&model.UAV{}).
		Select("op_status, COUNT(*) as count").
		Group("op_status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate uav statuses: %w", err)
	}
	for _, r := range rows {
		agg.ByOpStatus[r.OpStatus] = r.Count
		agg.TotalUAVs += r.Count
	}

	type summaryRow struct {
		MaxAltitude float64
		AvgBattery  float64
	}
	var summary summaryRow
	if err := s.db.WithContext(ctx).Model(&model.UAV{}).
		Select("COALESCE(MAX(max_altitude_m), 0) as max_altitude, COALESCE(AVG(battery_level), 0) as avg_battery").
		Scan(&summary).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate fleet summary: %w", err)
	}
	agg.MaxAltitudeM = summary.MaxAltitude
	agg.AvgBattery = summary.AvgBattery

	if err := s.db.WithContext(ctx).Model(&model.DockingRecord{}).
		Where("undock_time IS NULL").
		Count(&agg.ActiveSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return agg, nil
}

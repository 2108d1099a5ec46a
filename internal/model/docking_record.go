package model

import "time"

// DockPurpose is the declared reason for a docking session.
type DockPurpose string

const (
	PurposeCharging    DockPurpose = "CHARGING"
	PurposeMaintenance DockPurpose = "MAINTENANCE"
	PurposeShelter     DockPurpose = "SHELTER"
	PurposeStandby     DockPurpose = "STANDBY"
)

// DockingRecordStatus is the lifecycle state of a docking session record.
type DockingRecordStatus string

const (
	RecordDocked          DockingRecordStatus = "DOCKED"
	RecordCompleted       DockingRecordStatus = "COMPLETED"
	RecordAborted         DockingRecordStatus = "ABORTED"
	RecordEmergencyUndock DockingRecordStatus = "EMERGENCY_UNDOCK"
)

// DockingRecord is an append-only session record. UndockTime is nil while
// the session is active; a partial unique index on (uav_id) WHERE
// undock_time IS NULL (applied in internal/db) guarantees at most one
// active record per UAV even if two dock requests race past the in-process
// guard.
type DockingRecord struct {
	ID                 string              `gorm:"primaryKey;size:64" json:"id"`
	UAVID              string              `gorm:"column:uav_id;index;size:64;not null" json:"uav_id"`
	StationID          string              `gorm:"index;size:64;not null" json:"station_id"`
	Purpose            DockPurpose         `gorm:"size:16;not null" json:"purpose"`
	Status             DockingRecordStatus `gorm:"size:20;not null" json:"status"`
	DockTime           time.Time           `gorm:"not null;index" json:"dock_time"`
	UndockTime         *time.Time          `json:"undock_time"`
	BatteryOnArrival   float64             `json:"battery_on_arrival"`
	BatteryOnDeparture *float64            `json:"battery_on_departure"`

	// Associations
	UAV     UAV            `gorm:"foreignKey:UAVID;constraint:OnDelete:CASCADE" json:"-"`
	Station DockingStation `gorm:"foreignKey:StationID;constraint:OnDelete:CASCADE" json:"-"`
}

// Active reports whether the session is still open.
func (r *DockingRecord) Active() bool {
	return r.UndockTime == nil
}

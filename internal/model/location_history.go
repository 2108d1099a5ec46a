package model

import "time"

// LocationSource identifies how a position fix was obtained.
type LocationSource string

const (
	SourceGPS       LocationSource = "GPS"
	SourceEstimated LocationSource = "ESTIMATED"
	SourceManual    LocationSource = "MANUAL"
)

// LocationHistory is one append-only trail entry. Entries are never
// mutated; old entries are removed only by the retention service.
type LocationHistory struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UAVID        string         `gorm:"column:uav_id;index:idx_location_uav_time;size:64;not null" json:"uav_id"`
	Latitude     float64        `gorm:"not null" json:"latitude"`
	Longitude    float64        `gorm:"not null" json:"longitude"`
	AltitudeM    float64        `json:"altitude_m"`
	Timestamp    time.Time      `gorm:"not null;index:idx_location_uav_time" json:"timestamp"`
	SpeedMPS     float64        `json:"speed_mps"`
	HeadingDeg   float64        `json:"heading_deg"`
	BatteryLevel float64        `json:"battery_level"`
	AccuracyM    float64        `json:"accuracy_m"`
	Source       LocationSource `gorm:"size:16;not null;default:GPS" json:"source"`
}

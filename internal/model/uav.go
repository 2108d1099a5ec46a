package model

import "time"

// AuthStatus is the fleet authorization state of a UAV.
type AuthStatus string

const (
	AuthAuthorized   AuthStatus = "AUTHORIZED"
	AuthUnauthorized AuthStatus = "UNAUTHORIZED"
)

// OpStatus is the operational state of a UAV.
type OpStatus string

const (
	OpReady       OpStatus = "READY"
	OpCharging    OpStatus = "CHARGING"
	OpMaintenance OpStatus = "MAINTENANCE"
	OpInFlight    OpStatus = "IN_FLIGHT"
	OpHibernating OpStatus = "HIBERNATING"
)

// UAV represents a registered vehicle. The lat/lon/altitude columns are the
// live snapshot, overwritten by the most recently applied position update.
// MaxAltitudeM and LastSpeedMPS are denormalized aggregates recomputed on
// ingest; history remains the authoritative record.
type UAV struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Callsign     string     `gorm:"uniqueIndex;size:64;not null" json:"callsign"`
	AuthStatus   AuthStatus `gorm:"size:16;not null;default:UNAUTHORIZED" json:"auth_status"`
	OpStatus     OpStatus   `gorm:"size:16;not null;default:READY" json:"op_status"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	AltitudeM    float64    `json:"altitude_m"`
	PositionAt   *time.Time `json:"position_at"`
	BatteryLevel float64    `json:"battery_level"`
	MaxAltitudeM float64    `json:"max_altitude_m"`
	LastSpeedMPS float64    `json:"last_speed_mps"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Regions []*Region `gorm:"many2many:uav_region_authorizations;" json:"regions,omitempty"`
}

// Region is an airspace region a UAV can be authorized to operate in.
type Region struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

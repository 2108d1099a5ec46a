package model

import "time"

// StationStatus is the operational state of a docking station.
type StationStatus string

const (
	StationOperational StationStatus = "OPERATIONAL"
	StationMaintenance StationStatus = "MAINTENANCE"
	StationOffline     StationStatus = "OFFLINE"
)

// Capability is a station capability a dock request can require.
type Capability string

const (
	CapabilityCharging    Capability = "charging"
	CapabilityMaintenance Capability = "maintenance"
	CapabilityWeather     Capability = "weather_protected"
)

// DockingStation describes a physical station. Occupancy is intentionally
// not a column: it is derived from the coordinator's membership set so a
// stored counter can never drift from reality.
type DockingStation struct {
	ID               string        `gorm:"primaryKey;size:64" json:"id"`
	Name             string        `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Latitude         float64       `gorm:"not null" json:"latitude"`
	Longitude        float64       `gorm:"not null" json:"longitude"`
	MaxCapacity      int           `gorm:"not null" json:"max_capacity"`
	Status           StationStatus `gorm:"size:16;not null;default:OPERATIONAL" json:"status"`
	HasCharging      bool          `json:"has_charging"`
	HasMaintenance   bool          `json:"has_maintenance"`
	WeatherProtected bool          `json:"weather_protected"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`
}

// HasCapability reports whether the station provides the named capability.
// An empty capability always matches.
func (s *DockingStation) HasCapability(c Capability) bool {
	switch c {
	case "":
		return true
	case CapabilityCharging:
		return s.HasCharging
	case CapabilityMaintenance:
		return s.HasMaintenance
	case CapabilityWeather:
		return s.WeatherProtected
	default:
		return false
	}
}

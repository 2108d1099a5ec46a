package model

import (
	"encoding/json"
	"fmt"
	"time"

	"uav-fleet-backend/internal/geo"
)

// GeometryType distinguishes circular from polygonal fences.
type GeometryType string

const (
	GeometryCircle  GeometryType = "CIRCLE"
	GeometryPolygon GeometryType = "POLYGON"
)

// BoundaryType gives a fence its direction: INCLUSION fences must contain
// the vehicle, EXCLUSION fences must not.
type BoundaryType string

const (
	BoundaryInclusion BoundaryType = "INCLUSION"
	BoundaryExclusion BoundaryType = "EXCLUSION"
)

// Geofence is an airspace boundary. Circle geometry lives in the center/
// radius columns; polygon geometry is a JSON-encoded vertex ring in
// VerticesJSON. Geometry is externally managed; the evaluator only touches
// the violation counters.
type Geofence struct {
	ID              string       `gorm:"primaryKey;size:64" json:"id"`
	Name            string       `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Geometry        GeometryType `gorm:"size:16;not null" json:"geometry"`
	CenterLat       float64      `json:"center_lat"`
	CenterLon       float64      `json:"center_lon"`
	RadiusM         float64      `json:"radius_m"`
	VerticesJSON    string       `gorm:"column:vertices_json;type:text" json:"-"`
	Boundary        BoundaryType `gorm:"size:16;not null" json:"boundary"`
	Active          bool         `gorm:"not null;default:true;index" json:"active"`
	Priority        int          `gorm:"not null;default:0" json:"priority"`
	ViolationCount  int64        `gorm:"not null;default:0" json:"violation_count"`
	LastViolationAt *time.Time   `json:"last_violation_at"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

// Ring decodes the polygon vertex ring. Only valid for polygon fences.
func (g *Geofence) Ring() ([]geo.Point, error) {
	if g.Geometry != GeometryPolygon {
		return nil, fmt.Errorf("geofence %s is not a polygon", g.ID)
	}
	var ring []geo.Point
	if err := json.Unmarshal([]byte(g.VerticesJSON), &ring); err != nil {
		return nil, fmt.Errorf("geofence %s has malformed vertices: %w", g.ID, err)
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("geofence %s polygon needs at least 3 vertices, got %d", g.ID, len(ring))
	}
	return ring, nil
}

// SetRing encodes and stores a polygon vertex ring.
func (g *Geofence) SetRing(ring []geo.Point) error {
	if len(ring) < 3 {
		return fmt.Errorf("polygon needs at least 3 vertices, got %d", len(ring))
	}
	raw, err := json.Marshal(ring)
	if err != nil {
		return err
	}
	g.Geometry = GeometryPolygon
	g.VerticesJSON = string(raw)
	return nil
}

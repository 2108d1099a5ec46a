// Package parse converts the string forms used in query parameters and
// geofence imports into engine types.
package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"uav-fleet-backend/internal/geo"
)

// LatLon parses a "lat,lon" pair in decimal degrees, validating the
// coordinate ranges.
func LatLon(s string) (geo.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("expected \"lat,lon\", got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}

	if lat < -90 || lat > 90 {
		return geo.Point{}, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return geo.Point{}, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}

	return geo.Point{Lat: lat, Lon: lon}, nil
}

// Ring parses a semicolon-separated list of "lat,lon" pairs into a polygon
// vertex ring. The ring must have at least three vertices.
func Ring(s string) ([]geo.Point, error) {
	var ring []geo.Point
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := LatLon(part)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", len(ring), err)
		}
		ring = append(ring, p)
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 vertices, got %d", len(ring))
	}
	return ring, nil
}

// TimeRange parses optional RFC3339 "since"/"until" query values. Empty
// strings yield nil bounds.
func TimeRange(sinceStr, untilStr string) (since, until *time.Time, err error) {
	if sinceStr != "" {
		t, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid since %q: %w", sinceStr, err)
		}
		since = &t
	}
	if untilStr != "" {
		t, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid until %q: %w", untilStr, err)
		}
		until = &t
	}
	if since != nil && until != nil && until.Before(*since) {
		return nil, nil, fmt.Errorf("until %s is before since %s", until.Format(time.RFC3339), since.Format(time.RFC3339))
	}
	return since, until, nil
}

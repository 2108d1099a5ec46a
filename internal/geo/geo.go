package geo

import "math"

// EarthRadiusM is the mean earth radius used for great-circle math.
const EarthRadiusM = 6371000.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the haversine great-circle distance between p1 and p2 in meters.
func Distance(p1, p2 Point) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLat := (p2.Lat - p1.Lat) * math.Pi / 180
	dLon := (p2.Lon - p1.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Clamp to guard against floating point drift for antipodal and
	// near-identical points.
	if a > 1 {
		a = 1
	} else if a < 0 {
		a = 0
	}

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(a))
}

// Bearing returns the initial bearing from p1 to p2 in degrees, normalized to [0, 360).
func Bearing(p1, p2 Point) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLon := (p2.Lon - p1.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// InsideCircle reports whether point lies within radiusM meters of center.
// A point exactly on the boundary counts as inside.
func InsideCircle(point, center Point, radiusM float64) bool {
	return Distance(point, center) <= radiusM
}

// InsidePolygon reports whether point lies within the polygon described by ring.
// The ring is treated as closed: the last vertex connects back to the first.
// Points exactly on an edge count as inside. Panics if ring has fewer than
// three vertices; that is a caller contract violation, not a runtime condition.
func InsidePolygon(point Point, ring []Point) bool {
	if len(ring) < 3 {
		panic("geo: polygon ring must have at least 3 vertices")
	}

	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]

		if onSegment(point, a, b) {
			return true
		}

		intersects := (a.Lat > point.Lat) != (b.Lat > point.Lat) &&
			point.Lon < (b.Lon-a.Lon)*(point.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lon
		if intersects {
			inside = !inside
		}
	}
	return inside
}

// onSegment reports whether p lies on the segment between a and b.
func onSegment(p, a, b Point) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > 1e-12 {
		return false
	}
	return p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat) &&
		p.Lon >= math.Min(a.Lon, b.Lon) && p.Lon <= math.Max(a.Lon, b.Lon)
}

package geo

import (
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle (Haversine) distance between two points
// in kilometers.
func Distance(a, b Point) float64 {
	latA := radians(a.Lat)
	latB := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether candidate lies within radiusKm of ref.
func WithinRadius(ref, candidate Point, radiusKm float64) bool {
	if radiusKm < 0 {
		return false
	}
	return Distance(ref, candidate) <= radiusKm
}

// ParsePoint parses free-form latitude/longitude strings as found on source
// records. Missing or unparseable coordinates return ok=false; callers are
// expected to skip such candidates rather than fail.
func ParsePoint(lat, lng string) (Point, bool) {
	latF, ok := parseCoord(lat)
	if !ok {
		return Point{}, false
	}
	lngF, ok := parseCoord(lng)
	if !ok {
		return Point{}, false
	}
	return Point{Lat: latF, Lng: lngF}, true
}

func parseCoord(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

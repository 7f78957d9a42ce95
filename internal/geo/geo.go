// Package geo provides the small set of geodesic and interpolation
// primitives the track editor needs. Distances are great-circle metres on
// the WGS84 sphere; interpolation understands the optional per-point
// fields (elevation, biometrics) that may be absent on either side.
package geo

import "math"

// EarthRadiusMetres is the mean Earth radius used by Haversine.
const EarthRadiusMetres = 6371000.0

// Haversine returns the great-circle distance in metres between two
// (lat, lon) pairs in decimal degrees. Symmetric; zero for identical
// coordinates within numeric noise.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMetres * c
}

// Lerp is plain linear interpolation a + t*(b-a) for t in [0,1].
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// InterpFloat interpolates between two optional values. When one side is
// absent the present side wins; when both are absent the result is nil.
func InterpFloat(a, b *float64, t float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := Lerp(*a, *b, t)
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	}
	return nil
}

// InterpInt is InterpFloat for integer-typed fields (hr, cadence, power);
// the interpolated value is rounded to the nearest integer.
func InterpInt(a, b *int, t float64) *int {
	switch {
	case a != nil && b != nil:
		v := int(math.Round(Lerp(float64(*a), float64(*b), t)))
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	}
	return nil
}

// ValidCoordinates reports whether lat/lon form a plausible WGS84 pair.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

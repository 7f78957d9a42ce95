package track

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/trackfix-data/trackfix/internal/geo"
	"github.com/trackfix-data/trackfix/internal/units"
)

// Stats summarises a track for the front end. Speeds come from timed legs
// only; distance covers every leg regardless of timing.
type Stats struct {
	Segments        int      `json:"segments"`
	Points          int      `json:"points"`
	DistanceMetres  float64  `json:"distance_m"`
	DurationSeconds float64  `json:"duration_s"`
	AvgSpeed        float64  `json:"avg_speed"`
	MaxSpeed        float64  `json:"max_speed"`
	SpeedUnits      string   `json:"speed_units"`
	ElevationGain   float64  `json:"elevation_gain_m"`
	AvgHeartRate    *float64 `json:"avg_hr,omitempty"`
}

// Stats computes summary statistics over the track. Leg speeds are
// averaged weighted by leg duration, so GPS sampling jitter does not skew
// the mean.
func (t *Track) Stats() Stats {
	s := Stats{Segments: len(t.Segments), Points: t.NumPoints(), SpeedUnits: units.MPS}

	var speeds, weights, hrs []float64

	for _, seg := range t.Segments {
		pts := seg.Points
		for i := range pts {
			if pts[i].HR != nil {
				hrs = append(hrs, float64(*pts[i].HR))
			}
			if i == 0 {
				continue
			}
			prev, cur := pts[i-1], pts[i]
			d := geo.Haversine(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
			s.DistanceMetres += d

			if prev.Ele != nil && cur.Ele != nil && *cur.Ele > *prev.Ele {
				s.ElevationGain += *cur.Ele - *prev.Ele
			}

			if prev.Time == nil || cur.Time == nil {
				continue
			}
			dt := cur.Time.Sub(*prev.Time).Seconds()
			if dt <= 0 {
				continue
			}
			s.DurationSeconds += dt
			speeds = append(speeds, d/dt)
			weights = append(weights, dt)
		}
	}

	if len(speeds) > 0 {
		s.AvgSpeed = stat.Mean(speeds, weights)
		s.MaxSpeed = floats.Max(speeds)
	}
	if len(hrs) > 0 {
		mean := stat.Mean(hrs, nil)
		s.AvgHeartRate = &mean
	}
	return s
}

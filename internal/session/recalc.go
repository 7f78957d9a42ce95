package session

import (
	"time"

	"github.com/trackfix-data/trackfix/internal/geo"
	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// DefaultMaxDeviation caps local speed at +/-10% of the average when
// recalculating times.
const DefaultMaxDeviation = 0.10

// RecalculateTimes smooths the time distribution between two points,
// identified by id across the flattened track, so that local speed does
// not deviate from the average by more than maxDeviation. The boundary
// points keep their timestamps; intermediate points get times
// proportional to cumulative distance, then clamped leg by leg.
func (s *Session) RecalculateTimes(startPointID, endPointID string, maxDeviation float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxDeviation <= 0 {
		maxDeviation = DefaultMaxDeviation
	}

	var flat []*track.Point
	for si := range s.current.Segments {
		for pi := range s.current.Segments[si].Points {
			flat = append(flat, &s.current.Segments[si].Points[pi])
		}
	}

	startIdx, endIdx := -1, -1
	for i, p := range flat {
		if p.ID == startPointID {
			startIdx = i
		}
		if p.ID == endPointID {
			endIdx = i
		}
	}
	if startIdx < 0 {
		return trackerr.New(trackerr.KindInvalidArgument, "point id not found: %s", startPointID)
	}
	if endIdx < 0 {
		return trackerr.New(trackerr.KindInvalidArgument, "point id not found: %s", endPointID)
	}
	if startIdx >= endIdx {
		return trackerr.New(trackerr.KindInvalidArgument, "start point must come before end point")
	}

	points := flat[startIdx : endIdx+1]
	if points[0].Time == nil || points[len(points)-1].Time == nil {
		return trackerr.New(trackerr.KindInvalidArgument, "boundary points must carry timestamps")
	}

	dists := make([]float64, len(points))
	totalDist := 0.0
	for i := 1; i < len(points); i++ {
		d := geo.Haversine(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		dists[i] = d
		totalDist += d
	}
	if totalDist == 0 {
		return nil // nothing to redistribute
	}

	t0 := *points[0].Time
	t1 := *points[len(points)-1].Time
	totalTime := t1.Sub(t0).Seconds()
	if totalTime <= 0 {
		return trackerr.New(trackerr.KindInvalidArgument, "end point time must be after start point time")
	}
	avgSpeed := totalDist / totalTime

	// distance-proportional first pass
	newTimes := make([]time.Time, len(points))
	newTimes[0] = t0
	cum := 0.0
	for i := 1; i < len(points)-1; i++ {
		cum += dists[i]
		newTimes[i] = t0.Add(secondsToDuration(totalTime * cum / totalDist))
	}
	newTimes[len(points)-1] = t1

	// clamp leg speeds to the allowed band around the average
	maxSpeed := avgSpeed * (1 + maxDeviation)
	minSpeed := avgSpeed * (1 - maxDeviation)
	for i := 1; i < len(points); i++ {
		dt := newTimes[i].Sub(newTimes[i-1]).Seconds()
		if dt <= 0 {
			dt = 1e-3
		}
		speed := dists[i] / dt
		if speed > maxSpeed {
			dt = dists[i] / maxSpeed
		} else if speed < minSpeed && minSpeed > 0 {
			dt = dists[i] / minSpeed
		}
		newTimes[i] = newTimes[i-1].Add(secondsToDuration(dt))
	}

	for i := range points {
		t := newTimes[i].UTC()
		points[i].Time = &t
	}

	s.snapshot()
	return nil
}

package session

import (
	"time"

	"github.com/trackfix-data/trackfix/internal/geo"
	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// fallbackSpeedMPS is assumed when the track metadata carries no usable
// distance/duration pair to derive an average speed from.
const fallbackSpeedMPS = 5.0

// rerouteIndexWindow bounds the elastic deformation to +/- this many
// indices around the dragged point.
const rerouteIndexWindow = 100

// stuckRadiusMetres is the distance under which consecutive points count
// as the same stuck position.
const stuckRadiusMetres = 1.0

// GpsStuck is a detected anomaly region: the last good point before the
// region, the first good point after, and the anomalous indices between.
type GpsStuck struct {
	SegmentIdx   int   `json:"segment_idx"`
	StartIdx     int   `json:"start_idx"`
	EndIdx       int   `json:"end_idx"`
	StuckIndices []int `json:"stuck_indices"`
}

// InsertPoint inserts a new point after prevPointIdx (-1 prepends) and
// synthesizes its time and auxiliary fields from the neighbours and the
// track's average speed.
func (s *Session) InsertPoint(segmentIdx, prevPointIdx int, lat, lon float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if segmentIdx < 0 || segmentIdx >= len(s.current.Segments) {
		return trackerr.New(trackerr.KindOutOfRange, "segment %d out of range", segmentIdx)
	}
	seg := &s.current.Segments[segmentIdx]
	n := len(seg.Points)
	if n == 0 {
		return trackerr.New(trackerr.KindOutOfRange, "segment %d has no points", segmentIdx)
	}
	if prevPointIdx < -1 || prevPointIdx >= n {
		return trackerr.New(trackerr.KindOutOfRange, "point %d out of range", prevPointIdx)
	}
	if !geo.ValidCoordinates(lat, lon) {
		return trackerr.New(trackerr.KindInvalidArgument, "invalid coordinates (%v, %v)", lat, lon)
	}

	speed := fallbackSpeedMPS
	if d, dur := s.current.Metadata.Distance, s.current.Metadata.Duration; d != nil && dur != nil && *dur > 0 {
		speed = *d / *dur
	}

	newPt := track.Point{ID: track.NewPointID(), Lat: lat, Lon: lon}

	switch {
	case prevPointIdx == -1:
		first := seg.Points[0]
		d := geo.Haversine(lat, lon, first.Lat, first.Lon)
		if first.Time != nil {
			t := first.Time.Add(-secondsToDuration(d / speed))
			newPt.Time = &t
		}
		copyAux(&newPt, first)
		seg.Points = append([]track.Point{newPt}, seg.Points...)

	case prevPointIdx == n-1:
		last := seg.Points[n-1]
		d := geo.Haversine(last.Lat, last.Lon, lat, lon)
		if last.Time != nil {
			t := last.Time.Add(secondsToDuration(d / speed))
			newPt.Time = &t
		}
		copyAux(&newPt, last)
		seg.Points = append(seg.Points, newPt)

	default:
		prev := seg.Points[prevPointIdx]
		next := seg.Points[prevPointIdx+1]
		d0 := geo.Haversine(prev.Lat, prev.Lon, lat, lon)
		d1 := geo.Haversine(lat, lon, next.Lat, next.Lon)
		t := 0.5
		if total := d0 + d1; total > 0 {
			t = d0 / total
		}
		if prev.Time != nil && next.Time != nil {
			span := next.Time.Sub(*prev.Time)
			ts := prev.Time.Add(time.Duration(float64(span) * t))
			newPt.Time = &ts
		}
		newPt.Ele = geo.InterpFloat(prev.Ele, next.Ele, t)
		newPt.HR = geo.InterpInt(prev.HR, next.HR, t)
		newPt.Cadence = geo.InterpInt(prev.Cadence, next.Cadence, t)
		newPt.Power = geo.InterpInt(prev.Power, next.Power, t)

		seg.Points = append(seg.Points, track.Point{})
		copy(seg.Points[prevPointIdx+2:], seg.Points[prevPointIdx+1:])
		seg.Points[prevPointIdx+1] = newPt
	}

	s.snapshot()
	return nil
}

// copyAux copies elevation and biometrics from an anchor point onto a
// freshly inserted boundary point.
func copyAux(dst *track.Point, src track.Point) {
	c := src.Clone()
	dst.Ele = c.Ele
	dst.HR = c.HR
	dst.Cadence = c.Cadence
	dst.Power = c.Power
}

// UpdateTime replaces a point's timestamp after checking it does not
// break segment time ordering against its immediate neighbours.
func (s *Session) UpdateTime(segmentIdx, pointIdx int, newTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if segmentIdx < 0 || segmentIdx >= len(s.current.Segments) {
		return trackerr.New(trackerr.KindOutOfRange, "segment %d out of range", segmentIdx)
	}
	pts := s.current.Segments[segmentIdx].Points
	if pointIdx < 0 || pointIdx >= len(pts) {
		return trackerr.New(trackerr.KindOutOfRange, "point %d out of range", pointIdx)
	}

	if pointIdx > 0 {
		if prev := pts[pointIdx-1].Time; prev != nil && newTime.Before(*prev) {
			return trackerr.New(trackerr.KindInvalidArgument, "time out of order")
		}
	}
	if pointIdx < len(pts)-1 {
		if next := pts[pointIdx+1].Time; next != nil && newTime.After(*next) {
			return trackerr.New(trackerr.KindInvalidArgument, "time out of order")
		}
	}

	t := newTime.UTC()
	pts[pointIdx].Time = &t
	s.snapshot()
	return nil
}

// Reroute drags one point to new coordinates with a smooth, distance
// weighted pull on its neighbours within radiusM metres and an index
// window of +/-100 points. Only the "straight" mode exists; any other
// mode value behaves identically.
func (s *Session) Reroute(segmentIdx, pointIdx int, newLat, newLon float64, mode string, radiusM float64) error {
	_ = mode // reserved for a map-snapped variant

	s.mu.Lock()
	defer s.mu.Unlock()

	if segmentIdx < 0 || segmentIdx >= len(s.current.Segments) {
		return trackerr.New(trackerr.KindOutOfRange, "segment %d out of range", segmentIdx)
	}
	pts := s.current.Segments[segmentIdx].Points
	if pointIdx < 0 || pointIdx >= len(pts) {
		return trackerr.New(trackerr.KindOutOfRange, "point %d out of range", pointIdx)
	}

	oldLat, oldLon := pts[pointIdx].Lat, pts[pointIdx].Lon
	dLat := newLat - oldLat
	dLon := newLon - oldLon

	if radiusM > 0 {
		start := max(0, pointIdx-rerouteIndexWindow)
		end := min(len(pts), pointIdx+rerouteIndexWindow)
		for i := start; i < end; i++ {
			if i == pointIdx {
				continue
			}
			d := geo.Haversine(oldLat, oldLon, pts[i].Lat, pts[i].Lon)
			if d > radiusM {
				continue
			}
			w := 1.0 - d/radiusM
			pts[i].Lat += w * dLat
			pts[i].Lon += w * dLon
		}
	}

	pts[pointIdx].Lat = newLat
	pts[pointIdx].Lon = newLon

	s.snapshot()
	return nil
}

// DetectGpsStucks scans for runs of points glued to one position that
// end with an implausibly fast jump. Pure: no history entry, no track
// mutation.
func (s *Session) DetectGpsStucks(maxSpeed float64, minPoints int) []GpsStuck {
	s.mu.Lock()
	defer s.mu.Unlock()

	stucks := []GpsStuck{}
	for segIdx := range s.current.Segments {
		pts := s.current.Segments[segIdx].Points
		i := 1
		for i < len(pts)-1 {
			start := i - 1
			var run []int
			for i < len(pts) && geo.Haversine(pts[start].Lat, pts[start].Lon, pts[i].Lat, pts[i].Lon) <= stuckRadiusMetres {
				run = append(run, i)
				i++
			}
			if len(run) >= minPoints && i < len(pts) {
				if speed, ok := jumpSpeed(pts[i-1], pts[i]); ok && speed > maxSpeed {
					stucks = append(stucks, GpsStuck{
						SegmentIdx:   segIdx,
						StartIdx:     start,
						EndIdx:       i,
						StuckIndices: run,
					})
					continue
				}
			}
			i++
		}
	}
	return stucks
}

// jumpSpeed computes the speed between consecutive points. The speed is
// unknowable without two increasing timestamps.
func jumpSpeed(a, b track.Point) (float64, bool) {
	if a.Time == nil || b.Time == nil {
		return 0, false
	}
	dt := b.Time.Sub(*a.Time).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / dt, true
}

// NormalizeGpsStucks redistributes each stuck run evenly along the chord
// between the bracketing good points. Only lat/lon change.
func (s *Session) NormalizeGpsStucks(stucks []GpsStuck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// validate every run before touching anything
	for _, st := range stucks {
		if st.SegmentIdx < 0 || st.SegmentIdx >= len(s.current.Segments) {
			return trackerr.New(trackerr.KindOutOfRange, "segment %d out of range", st.SegmentIdx)
		}
		n := len(s.current.Segments[st.SegmentIdx].Points)
		if st.StartIdx < 0 || st.EndIdx >= n || st.StartIdx >= st.EndIdx {
			return trackerr.New(trackerr.KindOutOfRange, "stuck range [%d, %d] out of range", st.StartIdx, st.EndIdx)
		}
		for _, idx := range st.StuckIndices {
			if idx <= st.StartIdx || idx >= st.EndIdx {
				return trackerr.New(trackerr.KindInvalidArgument, "stuck index %d outside (%d, %d)", idx, st.StartIdx, st.EndIdx)
			}
		}
	}

	if len(stucks) == 0 {
		return nil
	}

	for _, st := range stucks {
		pts := s.current.Segments[st.SegmentIdx].Points
		p0 := pts[st.StartIdx]
		p1 := pts[st.EndIdx]
		n := float64(len(st.StuckIndices) + 1)
		for j, idx := range st.StuckIndices {
			t := float64(j+1) / n
			pts[idx].Lat = geo.Lerp(p0.Lat, p1.Lat, t)
			pts[idx].Lon = geo.Lerp(p0.Lon, p1.Lon, t)
		}
	}

	s.snapshot()
	return nil
}

// Trim keeps only the points whose global index (across the concatenated
// segments, 0-based inclusive) lies in [startIdx, endIdx]. Segments
// emptied by the filter are dropped.
func (s *Session) Trim(startIdx, endIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if startIdx < 0 || endIdx < startIdx {
		return trackerr.New(trackerr.KindInvalidArgument, "invalid trim range [%d, %d]", startIdx, endIdx)
	}

	var kept []track.Segment
	global := 0
	for _, seg := range s.current.Segments {
		var pts []track.Point
		for _, p := range seg.Points {
			if global >= startIdx && global <= endIdx {
				pts = append(pts, p)
			}
			global++
		}
		if len(pts) > 0 {
			kept = append(kept, track.Segment{Points: pts})
		}
	}

	if len(kept) == 0 {
		return trackerr.New(trackerr.KindInvalidArgument, "empty trim")
	}

	s.current.Segments = kept
	s.snapshot()
	return nil
}

// MergeWith appends deep copies of the other track's segments. Metadata
// is not altered.
func (s *Session) MergeWith(other *track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seg := range other.Segments {
		s.current.Segments = append(s.current.Segments, seg.Clone())
	}
	s.snapshot()
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

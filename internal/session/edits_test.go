package session

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trackfix-data/trackfix/internal/geo"
	"github.com/trackfix-data/trackfix/internal/testutil"
	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

func TestInsertPoint_Prepend(t *testing.T) {
	t.Parallel()

	// no metadata distance/duration, so the fallback 5 m/s speed applies
	s := New(testutil.LinearTrack(3, 45, 9, 0.001, 10))
	first := s.current.Segments[0].Points[0]

	// ~500 m south of the first point
	newLat := 45 - 500.0/geo.EarthRadiusMetres*180/math.Pi
	require.NoError(t, s.InsertPoint(0, -1, newLat, 9))

	pts := s.current.Segments[0].Points
	require.Len(t, pts, 4)
	require.InDelta(t, newLat, pts[0].Lat, 1e-12)
	require.NotEmpty(t, pts[0].ID)
	require.NotEqual(t, first.ID, pts[0].ID)

	d := geo.Haversine(newLat, 9, first.Lat, first.Lon)
	wantDt := -d / fallbackSpeedMPS
	require.NotNil(t, pts[0].Time)
	require.InDelta(t, wantDt, pts[0].Time.Sub(*first.Time).Seconds(), 0.5)
	require.InDelta(t, -100, pts[0].Time.Sub(*first.Time).Seconds(), 2)
}

func TestInsertPoint_MetadataSpeed(t *testing.T) {
	t.Parallel()

	tr := testutil.LinearTrack(3, 45, 9, 0.001, 10)
	dist, dur := 1000.0, 100.0 // 10 m/s
	tr.Metadata.Distance = &dist
	tr.Metadata.Duration = &dur
	s := New(tr)

	last := s.current.Segments[0].Points[2]
	newLat := last.Lat + 0.001
	require.NoError(t, s.InsertPoint(0, 2, newLat, 9))

	pts := s.current.Segments[0].Points
	require.Len(t, pts, 4)
	d := geo.Haversine(last.Lat, last.Lon, newLat, 9)
	require.InDelta(t, d/10.0, pts[3].Time.Sub(*last.Time).Seconds(), 1e-6)
}

func TestInsertPoint_Interior(t *testing.T) {
	t.Parallel()

	s := New(testutil.NewTrack([]testutil.PointSpec{
		{Lat: 45.000, Lon: 9, Ele: 100, HR: 120, OffsetS: 0},
		{Lat: 45.002, Lon: 9, Ele: 200, HR: 160, OffsetS: 100},
	}))

	// midpoint of the two anchors
	require.NoError(t, s.InsertPoint(0, 0, 45.001, 9))

	pts := s.current.Segments[0].Points
	require.Len(t, pts, 3)
	mid := pts[1]
	require.InDelta(t, 45.001, mid.Lat, 1e-12)
	require.NotNil(t, mid.Time)
	require.InDelta(t, 50, mid.Time.Sub(*pts[0].Time).Seconds(), 0.5)
	require.NotNil(t, mid.Ele)
	require.InDelta(t, 150, *mid.Ele, 0.5)
	require.NotNil(t, mid.HR)
	require.InDelta(t, 140, float64(*mid.HR), 1)

	// timestamps stay monotonic
	for i := 1; i < len(pts); i++ {
		require.False(t, pts[i].Time.Before(*pts[i-1].Time))
	}
}

func TestInsertPoint_Errors(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(3, 45, 9, 0.001, 10))

	err := s.InsertPoint(2, 0, 45, 9)
	require.True(t, trackerr.IsKind(err, trackerr.KindOutOfRange), "got %v", err)

	err = s.InsertPoint(0, 3, 45, 9)
	require.True(t, trackerr.IsKind(err, trackerr.KindOutOfRange), "got %v", err)

	err = s.InsertPoint(0, 0, 91, 9)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.InsertPoint(0, 0, 45, 181)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)
}

func TestUpdateTime(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(3, 45, 9, 0.001, 10))

	ok := testutil.BaseTime.Add(15 * time.Second) // between neighbours at 10s and 20s
	require.NoError(t, s.UpdateTime(0, 1, ok))
	require.True(t, s.current.Segments[0].Points[1].Time.Equal(ok))

	err := s.UpdateTime(0, 1, testutil.BaseTime.Add(-5*time.Second))
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.UpdateTime(0, 1, testutil.BaseTime.Add(25*time.Second))
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.UpdateTime(0, 9, ok)
	require.True(t, trackerr.IsKind(err, trackerr.KindOutOfRange), "got %v", err)

	// failed updates leave no history entry
	require.Equal(t, 2, s.historyLen())
}

func TestReroute_RadiusZeroMovesOnlyTarget(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(5, 45, 9, 0.0001, 10))
	before := s.current.Clone()

	require.NoError(t, s.Reroute(0, 2, 45.01, 9.01, "straight", 0))

	pts := s.current.Segments[0].Points
	require.InDelta(t, 45.01, pts[2].Lat, 1e-12)
	require.InDelta(t, 9.01, pts[2].Lon, 1e-12)
	for _, i := range []int{0, 1, 3, 4} {
		require.InDelta(t, before.Segments[0].Points[i].Lat, pts[i].Lat, 1e-12)
		require.InDelta(t, before.Segments[0].Points[i].Lon, pts[i].Lon, 1e-12)
	}
}

func TestReroute_ElasticPull(t *testing.T) {
	t.Parallel()

	// consecutive points ~11 m apart
	s := New(testutil.LinearTrack(5, 45, 9, 0.0001, 10))
	before := s.current.Clone()
	old := before.Segments[0].Points[2]

	const radius = 30.0
	dLat, dLon := 0.001, -0.0005
	require.NoError(t, s.Reroute(0, 2, old.Lat+dLat, old.Lon+dLon, "straight", radius))

	pts := s.current.Segments[0].Points
	for i, prev := range before.Segments[0].Points {
		if i == 2 {
			continue
		}
		d := geo.Haversine(old.Lat, old.Lon, prev.Lat, prev.Lon)
		if d > radius {
			require.InDelta(t, prev.Lat, pts[i].Lat, 1e-12, "point %d outside radius moved", i)
			continue
		}
		w := 1.0 - d/radius
		require.InDelta(t, prev.Lat+w*dLat, pts[i].Lat, 1e-9, "point %d", i)
		require.InDelta(t, prev.Lon+w*dLon, pts[i].Lon, 1e-9, "point %d", i)
	}

	// the mode value is cosmetic: any string behaves like "straight"
	require.NoError(t, s.Reroute(0, 2, old.Lat, old.Lon, "teleport", 0))
	require.InDelta(t, old.Lat, s.current.Segments[0].Points[2].Lat, 1e-12)
}

// stuckTrack builds one segment with a plausible start, a run of points
// glued within a metre of it, and a far first point after the run.
func stuckTrack(runLen int) *track.Track {
	specs := []testutil.PointSpec{{Lat: 45, Lon: 9, OffsetS: 0}}
	for i := 0; i < runLen; i++ {
		specs = append(specs, testutil.PointSpec{
			Lat:     45.000001,
			Lon:     9,
			OffsetS: float64(i + 1),
		})
	}
	// ~1.1 km jump in one second
	specs = append(specs, testutil.PointSpec{Lat: 45.01, Lon: 9, OffsetS: float64(runLen + 1)})
	specs = append(specs, testutil.PointSpec{Lat: 45.0101, Lon: 9, OffsetS: float64(runLen + 2)})
	return testutil.NewTrack(specs)
}

func TestDetectGpsStucks(t *testing.T) {
	t.Parallel()

	s := New(stuckTrack(5))
	before := s.current.Clone()

	stucks := s.DetectGpsStucks(50, 3)
	require.Len(t, stucks, 1)
	st := stucks[0]
	require.Equal(t, 0, st.SegmentIdx)
	require.Equal(t, 0, st.StartIdx)
	require.Equal(t, 6, st.EndIdx)
	require.Equal(t, []int{1, 2, 3, 4, 5}, st.StuckIndices)

	// detection is pure: no mutation, no history entry
	require.Equal(t, 1, s.historyLen())
	require.Equal(t, before.NumPoints(), s.current.NumPoints())
	require.InDelta(t, before.Segments[0].Points[1].Lat, s.current.Segments[0].Points[1].Lat, 1e-15)
}

func TestDetectGpsStucks_NoAnomaly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sess      *Session
		maxSpeed  float64
		minPoints int
	}{
		{"clean track", New(testutil.LinearTrack(10, 45, 9, 0.001, 10)), 50, 3},
		{"run too short", New(stuckTrack(2)), 50, 3},
		{"jump too slow", New(stuckTrack(5)), 5000, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.sess.DetectGpsStucks(tc.maxSpeed, tc.minPoints)
			require.Empty(t, got)
			require.NotNil(t, got, "empty result must marshal as [] not null")
		})
	}
}

func TestNormalizeGpsStucks(t *testing.T) {
	t.Parallel()

	s := New(stuckTrack(5))
	stucks := s.DetectGpsStucks(50, 3)
	require.Len(t, stucks, 1)

	timesBefore := make([]time.Time, 0)
	for _, p := range s.current.Segments[0].Points {
		timesBefore = append(timesBefore, *p.Time)
	}

	require.NoError(t, s.NormalizeGpsStucks(stucks))

	pts := s.current.Segments[0].Points
	p0, p1 := pts[0], pts[6]
	n := float64(len(stucks[0].StuckIndices) + 1)
	for j, idx := range stucks[0].StuckIndices {
		frac := float64(j+1) / n
		require.InDelta(t, geo.Lerp(p0.Lat, p1.Lat, frac), pts[idx].Lat, 1e-12, "index %d", idx)
		require.InDelta(t, geo.Lerp(p0.Lon, p1.Lon, frac), pts[idx].Lon, 1e-12, "index %d", idx)
	}

	// only coordinates change
	for i, p := range pts {
		require.True(t, p.Time.Equal(timesBefore[i]), "timestamp %d changed", i)
	}
	require.Equal(t, 2, s.historyLen())

	// second application is a fixpoint
	require.NoError(t, s.NormalizeGpsStucks(stucks))
	for j, idx := range stucks[0].StuckIndices {
		frac := float64(j+1) / n
		require.InDelta(t, geo.Lerp(p0.Lat, p1.Lat, frac), pts[idx].Lat, 1e-12, "index %d", idx)
	}
}

func TestNormalizeGpsStucks_Validation(t *testing.T) {
	t.Parallel()

	s := New(stuckTrack(5))

	err := s.NormalizeGpsStucks([]GpsStuck{{SegmentIdx: 3, StartIdx: 0, EndIdx: 6, StuckIndices: []int{1}}})
	require.True(t, trackerr.IsKind(err, trackerr.KindOutOfRange), "got %v", err)

	err = s.NormalizeGpsStucks([]GpsStuck{{SegmentIdx: 0, StartIdx: 0, EndIdx: 99, StuckIndices: []int{1}}})
	require.True(t, trackerr.IsKind(err, trackerr.KindOutOfRange), "got %v", err)

	err = s.NormalizeGpsStucks([]GpsStuck{{SegmentIdx: 0, StartIdx: 2, EndIdx: 6, StuckIndices: []int{1}}})
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	// no history entries from rejected or empty input
	require.NoError(t, s.NormalizeGpsStucks(nil))
	require.Equal(t, 1, s.historyLen())
}

func TestTrim_GlobalIndices(t *testing.T) {
	t.Parallel()

	s := New(testutil.NewTrack(
		[]testutil.PointSpec{
			{Lat: 45.0, Lon: 9, OffsetS: 0},
			{Lat: 45.1, Lon: 9, OffsetS: 10},
			{Lat: 45.2, Lon: 9, OffsetS: 20},
		},
		[]testutil.PointSpec{
			{Lat: 46.0, Lon: 9, OffsetS: 30},
			{Lat: 46.1, Lon: 9, OffsetS: 40},
		},
		[]testutil.PointSpec{
			{Lat: 47.0, Lon: 9, OffsetS: 50},
			{Lat: 47.1, Lon: 9, OffsetS: 60},
			{Lat: 47.2, Lon: 9, OffsetS: 70},
			{Lat: 47.3, Lon: 9, OffsetS: 80},
		},
	))

	require.NoError(t, s.Trim(2, 5))

	require.Len(t, s.current.Segments, 3)
	require.Len(t, s.current.Segments[0].Points, 1)
	require.Len(t, s.current.Segments[1].Points, 2)
	require.Len(t, s.current.Segments[2].Points, 1)
	require.InDelta(t, 45.2, s.current.Segments[0].Points[0].Lat, 1e-12)
	require.InDelta(t, 47.0, s.current.Segments[2].Points[0].Lat, 1e-12)
}

func TestTrim_DropsEmptiedSegments(t *testing.T) {
	t.Parallel()

	s := New(testutil.NewTrack(
		[]testutil.PointSpec{{Lat: 45.0, Lon: 9, OffsetS: 0}, {Lat: 45.1, Lon: 9, OffsetS: 10}},
		[]testutil.PointSpec{{Lat: 46.0, Lon: 9, OffsetS: 20}},
	))

	require.NoError(t, s.Trim(0, 1))
	require.Len(t, s.current.Segments, 1)
	require.Len(t, s.current.Segments[0].Points, 2)
}

func TestTrim_Errors(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(3, 45, 9, 0.001, 10))

	err := s.Trim(2, 1)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.Trim(-1, 2)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.Trim(50, 60)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	require.Equal(t, 1, s.historyLen())
}

func TestMergeWith(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(3, 45, 9, 0.001, 10))
	other := testutil.LinearTrack(2, 50, 10, 0.001, 10)

	s.MergeWith(other)

	require.Len(t, s.current.Segments, 2)
	require.Equal(t, 5, s.current.NumPoints())
	require.Equal(t, 2, s.historyLen())

	// merged segments are deep copies
	other.Segments[0].Points[0].Lat = -1
	require.InDelta(t, 50.0, s.current.Segments[1].Points[0].Lat, 1e-12)

	require.True(t, s.Undo())
	require.Len(t, s.current.Segments, 1)
}

func TestRecalculateTimes(t *testing.T) {
	t.Parallel()

	// uneven spacing: legs of 1, 3 and 1 steps with uniform 10 s gaps
	s := New(testutil.NewTrack([]testutil.PointSpec{
		{Lat: 45.000, Lon: 9, OffsetS: 0},
		{Lat: 45.001, Lon: 9, OffsetS: 10},
		{Lat: 45.004, Lon: 9, OffsetS: 20},
		{Lat: 45.005, Lon: 9, OffsetS: 30},
	}))
	pts := s.current.Segments[0].Points
	startID, endID := pts[0].ID, pts[3].ID

	require.NoError(t, s.RecalculateTimes(startID, endID, 0.10))

	pts = s.current.Segments[0].Points
	require.True(t, pts[0].Time.Equal(testutil.BaseTime), "start boundary must keep its time")

	total := pts[3].Time.Sub(*pts[0].Time).Seconds()
	totalDist := 0.0
	for i := 1; i < 4; i++ {
		totalDist += geo.Haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	avg := totalDist / total
	for i := 1; i < 4; i++ {
		d := geo.Haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
		dt := pts[i].Time.Sub(*pts[i-1].Time).Seconds()
		require.Greater(t, dt, 0.0)
		speed := d / dt
		require.LessOrEqual(t, speed, avg*1.1+1e-9, "leg %d too fast", i)
		require.GreaterOrEqual(t, speed, avg*0.9-1e-9, "leg %d too slow", i)
	}
	require.Equal(t, 2, s.historyLen())
}

func TestRecalculateTimes_Errors(t *testing.T) {
	t.Parallel()

	s := New(testutil.LinearTrack(4, 45, 9, 0.001, 10))
	pts := s.current.Segments[0].Points

	err := s.RecalculateTimes("nope", pts[2].ID, 0)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	err = s.RecalculateTimes(pts[2].ID, pts[0].ID, 0)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)

	// missing boundary timestamp
	s2 := New(testutil.NewTrack([]testutil.PointSpec{
		{Lat: 45.000, Lon: 9, OffsetS: -1},
		{Lat: 45.001, Lon: 9, OffsetS: 10},
		{Lat: 45.002, Lon: 9, OffsetS: 20},
	}))
	p2 := s2.current.Segments[0].Points
	err = s2.RecalculateTimes(p2[0].ID, p2[2].ID, 0)
	require.True(t, trackerr.IsKind(err, trackerr.KindInvalidArgument), "got %v", err)
}

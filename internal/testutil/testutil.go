// Package testutil provides shared test fixtures and assertion helpers.
//
// The track builders construct small, deterministic tracks so edit and
// handler tests do not each carry their own fixture boilerplate.
package testutil

import (
	"testing"
	"time"

	"github.com/trackfix-data/trackfix/internal/track"
)

// BaseTime anchors generated point timestamps. Fixed so expected values
// in tests can be written as literals.
var BaseTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// PointSpec describes one generated point. Zero-valued optional fields
// are omitted from the point.
type PointSpec struct {
	Lat, Lon float64
	Ele      float64
	HR       int
	// OffsetS is seconds after BaseTime; negative means no timestamp.
	OffsetS float64
}

// NewPoint builds a track point from a spec with a fresh id.
func NewPoint(spec PointSpec) track.Point {
	p := track.Point{ID: track.NewPointID(), Lat: spec.Lat, Lon: spec.Lon}
	if spec.Ele != 0 {
		ele := spec.Ele
		p.Ele = &ele
	}
	if spec.HR != 0 {
		hr := spec.HR
		p.HR = &hr
	}
	if spec.OffsetS >= 0 {
		t := BaseTime.Add(time.Duration(spec.OffsetS * float64(time.Second)))
		p.Time = &t
	}
	return p
}

// NewTrack builds a track from per-segment point specs.
func NewTrack(segments ...[]PointSpec) *track.Track {
	t := &track.Track{
		Metadata: track.Metadata{Format: "gpx", Name: "fixture"},
	}
	for _, specs := range segments {
		seg := track.Segment{}
		for _, spec := range specs {
			seg.Points = append(seg.Points, NewPoint(spec))
		}
		t.Segments = append(t.Segments, seg)
	}
	return t
}

// LinearTrack builds one segment of n points marching north from
// (lat0, lon0) in steps of stepDeg, timestamped stepS seconds apart.
func LinearTrack(n int, lat0, lon0, stepDeg, stepS float64) *track.Track {
	specs := make([]PointSpec, n)
	for i := 0; i < n; i++ {
		specs[i] = PointSpec{
			Lat:     lat0 + float64(i)*stepDeg,
			Lon:     lon0,
			OffsetS: float64(i) * stepS,
		}
	}
	return NewTrack(specs)
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

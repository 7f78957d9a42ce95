// Package track holds the in-memory model of a recorded GPS activity:
// points, segments, the track itself, and its format-originated metadata.
// The model is mutated only by the editing session; codecs construct it
// and project it back out.
package track

import (
	"time"

	"github.com/google/uuid"

	"github.com/trackfix-data/trackfix/internal/timeutil"
)

// Point is a single GPS sample. Lat/lon are decimal degrees (WGS84); the
// remaining fields are optional. ID is editor-only: minted on decode and
// on insertion, stable for the lifetime of the owning track, and stripped
// on encode.
type Point struct {
	ID      string
	Lat     float64
	Lon     float64
	Ele     *float64
	Time    *time.Time
	HR      *int
	Cadence *int
	Power   *int
}

// NewPointID mints a fresh point identifier.
func NewPointID() string { return uuid.NewString() }

// Clone returns a deep copy of the point, preserving its ID.
func (p Point) Clone() Point {
	c := p
	c.Ele = cloneFloat(p.Ele)
	c.Time = cloneTime(p.Time)
	c.HR = cloneInt(p.HR)
	c.Cadence = cloneInt(p.Cadence)
	c.Power = cloneInt(p.Power)
	return c
}

// Segment is an ordered run of points. Timestamps within a segment, where
// present, are monotonically non-decreasing.
type Segment struct {
	Points []Point
}

// Clone returns a deep copy of the segment.
func (s Segment) Clone() Segment {
	pts := make([]Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Clone()
	}
	return Segment{Points: pts}
}

// Metadata carries the activity-level attributes a source file provides.
// Zero values mean "absent"; decoders fill what they find.
type Metadata struct {
	Format       string // "gpx", "fit" or "tcx"
	Name         string
	Description  string
	Sport        string
	Manufacturer string
	Product      string
	StartTime    *time.Time
	Duration     *float64 // seconds
	Distance     *float64 // metres
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	c := m
	c.StartTime = cloneTime(m.StartTime)
	c.Duration = cloneFloat(m.Duration)
	c.Distance = cloneFloat(m.Distance)
	return c
}

// Track is an ordered sequence of segments plus metadata. A well-formed
// track has at least one segment; a segment may be empty only transiently
// during an edit.
type Track struct {
	Segments []Segment
	Metadata Metadata
}

// Clone returns a deep, independent copy of the track. History snapshots
// rely on this: no point is shared between a snapshot and the live track.
func (t *Track) Clone() *Track {
	segs := make([]Segment, len(t.Segments))
	for i, s := range t.Segments {
		segs[i] = s.Clone()
	}
	return &Track{Segments: segs, Metadata: t.Metadata.Clone()}
}

// EnsureIDs mints identifiers for any points that lack one. Codecs call
// this once after decoding.
func (t *Track) EnsureIDs() {
	for si := range t.Segments {
		for pi := range t.Segments[si].Points {
			if t.Segments[si].Points[pi].ID == "" {
				t.Segments[si].Points[pi].ID = NewPointID()
			}
		}
	}
}

// NumPoints returns the total point count across all segments.
func (t *Track) NumPoints() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Points)
	}
	return n
}

// PointDict is the external JSON projection of a point. Absent optional
// fields serialize as null.
type PointDict struct {
	ID      string   `json:"id"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Ele     *float64 `json:"ele"`
	Time    *string  `json:"time"`
	HR      *int     `json:"hr"`
	Cadence *int     `json:"cadence"`
	Power   *int     `json:"power"`
}

// SegmentDict is the external JSON projection of a segment.
type SegmentDict struct {
	Points []PointDict `json:"points"`
}

// MetadataDict is the external JSON projection of the metadata, with
// ISO-8601 for any time fields.
type MetadataDict struct {
	Format       string   `json:"format"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Sport        string   `json:"sport,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Product      string   `json:"product,omitempty"`
	StartTime    *string  `json:"start_time,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
}

// Dict is the canonical external serialization of a track.
type Dict struct {
	Segments []SegmentDict `json:"segments"`
	Metadata MetadataDict  `json:"metadata"`
}

// Dict builds the canonical dictionary projection of the track.
func (t *Track) Dict() Dict {
	segs := make([]SegmentDict, len(t.Segments))
	for si, s := range t.Segments {
		pts := make([]PointDict, len(s.Points))
		for pi, p := range s.Points {
			pd := PointDict{
				ID:      p.ID,
				Lat:     p.Lat,
				Lon:     p.Lon,
				Ele:     cloneFloat(p.Ele),
				HR:      cloneInt(p.HR),
				Cadence: cloneInt(p.Cadence),
				Power:   cloneInt(p.Power),
			}
			if p.Time != nil {
				ts := timeutil.FormatISO8601(*p.Time)
				pd.Time = &ts
			}
			pts[pi] = pd
		}
		segs[si] = SegmentDict{Points: pts}
	}

	md := MetadataDict{
		Format:       t.Metadata.Format,
		Name:         t.Metadata.Name,
		Description:  t.Metadata.Description,
		Sport:        t.Metadata.Sport,
		Manufacturer: t.Metadata.Manufacturer,
		Product:      t.Metadata.Product,
		Duration:     cloneFloat(t.Metadata.Duration),
		Distance:     cloneFloat(t.Metadata.Distance),
	}
	if t.Metadata.StartTime != nil {
		ts := timeutil.FormatISO8601(*t.Metadata.StartTime)
		md.StartTime = &ts
	}

	return Dict{Segments: segs, Metadata: md}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

package codec

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// TrackPointExtension namespace carrying per-point biometrics.
const gpxtpxNamespace = "http://www.garmin.com/xmlschemas/TrackPointExtension/v1"

const gpxCreator = "trackfix"

// DecodeGPX parses a GPX 1.1 document. Each <trkseg> of each <trk>
// becomes one segment. Biometrics are scanned from point extensions by
// local-name suffix (hr, cad, power) in any namespace, including nested
// under TrackPointExtension.
func DecodeGPX(data []byte) (*track.Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, trackerr.New(trackerr.KindInvalidFormat, "parse gpx: %v", err)
	}

	out := &track.Track{Metadata: track.Metadata{Format: FormatGPX}}
	out.Metadata.Name = doc.Name
	out.Metadata.Description = doc.Description
	if doc.Time != nil && !doc.Time.IsZero() {
		t := doc.Time.UTC()
		out.Metadata.StartTime = &t
	}

	for ti, trk := range doc.Tracks {
		if ti == 0 {
			if trk.Name != "" {
				out.Metadata.Name = trk.Name
			}
			out.Metadata.Sport = trk.Type
		}
		for _, seg := range trk.Segments {
			s := track.Segment{Points: make([]track.Point, 0, len(seg.Points))}
			for _, p := range seg.Points {
				tp := track.Point{Lat: p.Latitude, Lon: p.Longitude}
				if p.Elevation.NotNull() {
					v := p.Elevation.Value()
					tp.Ele = &v
				}
				if !p.Timestamp.IsZero() {
					t := p.Timestamp.UTC()
					tp.Time = &t
				}
				tp.HR = extensionInt(p.Extensions, "hr")
				tp.Cadence = extensionInt(p.Extensions, "cad")
				tp.Power = extensionInt(p.Extensions, "power")
				s.Points = append(s.Points, tp)
			}
			out.Segments = append(out.Segments, s)
		}
	}

	if len(out.Segments) == 0 {
		out.Segments = []track.Segment{{}}
	}
	out.EnsureIDs()
	return out, nil
}

// EncodeGPX emits GPX 1.1 with one <trk> holding one <trkseg> per
// segment. Point ids are editor-only and are not written. Biometrics go
// into a gpxtpx:TrackPointExtension subtree, present fields only.
func EncodeGPX(t *track.Track) ([]byte, error) {
	doc := &gpx.GPX{
		Version:     "1.1",
		Creator:     gpxCreator,
		Name:        t.Metadata.Name,
		Description: t.Metadata.Description,
	}
	if t.Metadata.StartTime != nil {
		ts := t.Metadata.StartTime.UTC()
		doc.Time = &ts
	}
	doc.RegisterNamespace("gpxtpx", gpxtpxNamespace)

	trk := gpx.GPXTrack{
		Name:        t.Metadata.Name,
		Type:        t.Metadata.Sport,
		Description: t.Metadata.Description,
	}

	for _, seg := range t.Segments {
		gseg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(seg.Points))}
		for _, p := range seg.Points {
			var gp gpx.GPXPoint
			gp.Latitude = p.Lat
			gp.Longitude = p.Lon
			if p.Ele != nil {
				gp.Elevation = *gpx.NewNullableFloat64(*p.Ele)
			}
			if p.Time != nil {
				gp.Timestamp = p.Time.UTC()
			}
			if p.HR != nil || p.Cadence != nil || p.Power != nil {
				tpx := gpx.ExtensionNode{
					XMLName: xml.Name{Space: gpxtpxNamespace, Local: "TrackPointExtension"},
				}
				if p.HR != nil {
					tpx.Nodes = append(tpx.Nodes, tpxNode("hr", *p.HR))
				}
				if p.Cadence != nil {
					tpx.Nodes = append(tpx.Nodes, tpxNode("cad", *p.Cadence))
				}
				if p.Power != nil {
					tpx.Nodes = append(tpx.Nodes, tpxNode("power", *p.Power))
				}
				gp.Extensions.Nodes = append(gp.Extensions.Nodes, tpx)
			}
			gseg.Points = append(gseg.Points, gp)
		}
		trk.Segments = append(trk.Segments, gseg)
	}

	doc.Tracks = []gpx.GPXTrack{trk}

	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, trackerr.New(trackerr.KindInternal, "encode gpx: %v", err)
	}
	return out, nil
}

func tpxNode(local string, value int) gpx.ExtensionNode {
	return gpx.ExtensionNode{
		XMLName: xml.Name{Space: gpxtpxNamespace, Local: local},
		Data:    strconv.Itoa(value),
	}
}

// extensionInt finds the first extension element whose local name ends in
// suffix (case-insensitive, any namespace, any nesting depth) and parses
// its text as an integer.
func extensionInt(ext gpx.Extension, suffix string) *int {
	var walk func(nodes []gpx.ExtensionNode) *int
	walk = func(nodes []gpx.ExtensionNode) *int {
		for i := range nodes {
			n := &nodes[i]
			if strings.HasSuffix(strings.ToLower(n.XMLName.Local), suffix) {
				if v, ok := parseIntLoose(n.Data); ok {
					return &v
				}
			}
			if found := walk(n.Nodes); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(ext.Nodes)
}

// parseIntLoose parses an integer, tolerating float spellings such as a
// trailing ".0" that some exporters write.
func parseIntLoose(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return int(math.Round(f)), true
	}
	return 0, false
}

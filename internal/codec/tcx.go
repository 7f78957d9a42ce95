package codec

import (
	"bytes"
	"encoding/xml"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/trackfix-data/trackfix/internal/timeutil"
	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// TCX wire shapes. Tags carry no namespace so the decoder matches local
// names regardless of the document's namespace declarations.
type tcxDatabase struct {
	XMLName    xml.Name       `xml:"TrainingCenterDatabase"`
	Activities *tcxActivities `xml:"Activities"`
}

type tcxActivities struct {
	Activities []tcxActivity `xml:"Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	ID    string   `xml:"Id"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	Tracks []tcxTrack `xml:"Track"`
}

type tcxTrack struct {
	Trackpoints []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time           string        `xml:"Time"`
	Position       *tcxPosition  `xml:"Position"`
	AltitudeMeters *float64      `xml:"AltitudeMeters"`
	HeartRateBpm   *tcxHeartRate `xml:"HeartRateBpm"`
	Cadence        *int          `xml:"Cadence"`
	Extensions     *tcxExtension `xml:"Extensions"`
}

type tcxPosition struct {
	LatitudeDegrees  *float64 `xml:"LatitudeDegrees"`
	LongitudeDegrees *float64 `xml:"LongitudeDegrees"`
}

type tcxHeartRate struct {
	Value *int `xml:"Value"`
}

type tcxExtension struct {
	TPX []tcxTPX `xml:"TPX"`
}

type tcxTPX struct {
	Watts *int `xml:"Watts"`
}

// DecodeTCX parses a Garmin Training Center document. Each lap carrying
// trackpoints becomes one segment. Trackpoints without a Position are
// kept so indices stay aligned with the source.
func DecodeTCX(data []byte) (*track.Track, error) {
	var db tcxDatabase
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&db); err != nil {
		return nil, trackerr.New(trackerr.KindInvalidFormat, "parse tcx: %v", err)
	}

	if db.Activities == nil || len(db.Activities.Activities) == 0 {
		return nil, trackerr.New(trackerr.KindInvalidFormat, "tcx has no activity")
	}
	activity := db.Activities.Activities[0]

	meta := track.Metadata{
		Format: FormatTCX,
		Sport:  strings.ToLower(activity.Sport),
	}
	if activity.ID != "" {
		if t, err := timeutil.ParseISO8601(activity.ID); err == nil {
			meta.StartTime = &t
		}
	}

	out := &track.Track{Metadata: meta}
	for _, lap := range activity.Laps {
		var seg track.Segment
		for _, trk := range lap.Tracks {
			for _, tp := range trk.Trackpoints {
				p := track.Point{}
				if tp.Position != nil {
					if tp.Position.LatitudeDegrees != nil {
						p.Lat = *tp.Position.LatitudeDegrees
					}
					if tp.Position.LongitudeDegrees != nil {
						p.Lon = *tp.Position.LongitudeDegrees
					}
				}
				if tp.AltitudeMeters != nil {
					v := *tp.AltitudeMeters
					p.Ele = &v
				}
				if tp.Time != "" {
					if t, err := timeutil.ParseISO8601(tp.Time); err == nil {
						p.Time = &t
					}
				}
				if tp.HeartRateBpm != nil && tp.HeartRateBpm.Value != nil {
					v := *tp.HeartRateBpm.Value
					p.HR = &v
				}
				if tp.Cadence != nil {
					v := *tp.Cadence
					p.Cadence = &v
				}
				if tp.Extensions != nil {
					for _, tpx := range tp.Extensions.TPX {
						if tpx.Watts != nil {
							v := *tpx.Watts
							p.Power = &v
							break
						}
					}
				}
				seg.Points = append(seg.Points, p)
			}
		}
		if len(seg.Points) > 0 {
			out.Segments = append(out.Segments, seg)
		}
	}

	if len(out.Segments) == 0 {
		out.Segments = []track.Segment{{}}
	}
	out.EnsureIDs()
	return out, nil
}

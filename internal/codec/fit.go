package codec

import (
	"bytes"
	"math"
	"strconv"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/basetype"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/typedef"

	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// semicirclesToDegrees converts the FIT coordinate unit: one semicircle
// is 180 / 2^31 degrees.
func semicirclesToDegrees(s int32) float64 {
	return float64(s) * 180 / float64(int64(1)<<31)
}

// DecodeFIT walks the FIT data messages and collects every record into a
// single segment. file_id, sport and session frames populate metadata; a
// record missing either coordinate is skipped.
func DecodeFIT(data []byte) (*track.Track, error) {
	dec := decoder.New(bytes.NewReader(data))
	fitFile, err := dec.Decode()
	if err != nil {
		return nil, trackerr.New(trackerr.KindInvalidFormat, "parse fit: %v", err)
	}

	act := filedef.NewActivity(fitFile.Messages...)

	meta := track.Metadata{Format: FormatFIT}
	if act.FileId.Manufacturer != typedef.ManufacturerInvalid {
		meta.Manufacturer = act.FileId.Manufacturer.String()
	}
	if act.FileId.Product != basetype.Uint16Invalid {
		meta.Product = strconv.Itoa(int(act.FileId.Product))
	}
	for _, sp := range act.Sports {
		if sp.Sport != typedef.SportInvalid {
			meta.Sport = sp.Sport.String()
			break
		}
	}
	for _, ses := range act.Sessions {
		if !ses.StartTime.IsZero() {
			t := ses.StartTime.UTC()
			meta.StartTime = &t
		}
		if v := ses.TotalElapsedTimeScaled(); !math.IsNaN(v) {
			meta.Duration = &v
		}
		if v := ses.TotalDistanceScaled(); !math.IsNaN(v) {
			meta.Distance = &v
		}
		break
	}

	var seg track.Segment
	for _, rec := range act.Records {
		if rec.PositionLat == basetype.Sint32Invalid || rec.PositionLong == basetype.Sint32Invalid {
			continue
		}
		p := track.Point{
			Lat: semicirclesToDegrees(rec.PositionLat),
			Lon: semicirclesToDegrees(rec.PositionLong),
		}
		if v := rec.AltitudeScaled(); !math.IsNaN(v) {
			p.Ele = &v
		}
		if !rec.Timestamp.IsZero() {
			t := rec.Timestamp.UTC()
			p.Time = &t
		}
		if rec.HeartRate != basetype.Uint8Invalid {
			v := int(rec.HeartRate)
			p.HR = &v
		}
		if rec.Cadence != basetype.Uint8Invalid {
			v := int(rec.Cadence)
			p.Cadence = &v
		}
		if rec.Power != basetype.Uint16Invalid {
			v := int(rec.Power)
			p.Power = &v
		}
		seg.Points = append(seg.Points, p)
	}

	out := &track.Track{Segments: []track.Segment{seg}, Metadata: meta}
	out.EnsureIDs()
	return out, nil
}

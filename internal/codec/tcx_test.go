package codec

import (
	"testing"

	"github.com/trackfix-data/trackfix/internal/trackerr"
)

const tcxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
 <Activities>
  <Activity Sport="Biking">
   <Id>2024-06-01T10:00:00Z</Id>
   <Lap StartTime="2024-06-01T10:00:00Z">
    <TotalTimeSeconds>10</TotalTimeSeconds>
    <Track>
     <Trackpoint>
      <Time>2024-06-01T10:00:00Z</Time>
      <Position>
       <LatitudeDegrees>51.5</LatitudeDegrees>
       <LongitudeDegrees>-0.1</LongitudeDegrees>
      </Position>
      <AltitudeMeters>10.5</AltitudeMeters>
      <HeartRateBpm><Value>140</Value></HeartRateBpm>
      <Cadence>85</Cadence>
      <Extensions>
       <TPX xmlns="http://www.garmin.com/xmlschemas/ActivityExtension/v2">
        <Watts>250</Watts>
       </TPX>
      </Extensions>
     </Trackpoint>
     <Trackpoint>
      <Time>2024-06-01T10:00:05Z</Time>
     </Trackpoint>
    </Track>
   </Lap>
   <Lap StartTime="2024-06-01T10:05:00Z">
    <Track>
     <Trackpoint>
      <Time>2024-06-01T10:05:00Z</Time>
      <Position>
       <LatitudeDegrees>51.51</LatitudeDegrees>
       <LongitudeDegrees>-0.11</LongitudeDegrees>
      </Position>
     </Trackpoint>
    </Track>
   </Lap>
   <Lap StartTime="2024-06-01T10:10:00Z"/>
  </Activity>
 </Activities>
</TrainingCenterDatabase>`

func TestDecodeTCX(t *testing.T) {
	t.Parallel()

	tr, err := DecodeTCX([]byte(tcxFixture))
	if err != nil {
		t.Fatalf("DecodeTCX: %v", err)
	}

	if tr.Metadata.Format != "tcx" {
		t.Errorf("format = %q, want tcx", tr.Metadata.Format)
	}
	if tr.Metadata.Sport != "biking" {
		t.Errorf("sport = %q, want biking (lowercased)", tr.Metadata.Sport)
	}
	if tr.Metadata.StartTime == nil || tr.Metadata.StartTime.Format("2006-01-02T15:04:05Z") != "2024-06-01T10:00:00Z" {
		t.Errorf("start_time = %v", tr.Metadata.StartTime)
	}

	// two laps with trackpoints; the trackless lap yields no segment
	if len(tr.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(tr.Segments))
	}
	if len(tr.Segments[0].Points) != 2 || len(tr.Segments[1].Points) != 1 {
		t.Fatalf("segment sizes = %d/%d, want 2/1",
			len(tr.Segments[0].Points), len(tr.Segments[1].Points))
	}

	p0 := tr.Segments[0].Points[0]
	if p0.Lat != 51.5 || p0.Lon != -0.1 {
		t.Errorf("p0 coords = (%v, %v)", p0.Lat, p0.Lon)
	}
	if p0.Ele == nil || *p0.Ele != 10.5 {
		t.Errorf("p0 ele = %v, want 10.5", p0.Ele)
	}
	if p0.HR == nil || *p0.HR != 140 {
		t.Errorf("p0 hr = %v, want 140", p0.HR)
	}
	if p0.Cadence == nil || *p0.Cadence != 85 {
		t.Errorf("p0 cadence = %v, want 85", p0.Cadence)
	}
	if p0.Power == nil || *p0.Power != 250 {
		t.Errorf("p0 power (TPX watts) = %v, want 250", p0.Power)
	}

	// the positionless trackpoint is kept so indices stay aligned
	p1 := tr.Segments[0].Points[1]
	if p1.Time == nil {
		t.Error("positionless point lost its time")
	}
	if p1.Lat != 0 || p1.Lon != 0 {
		t.Errorf("positionless point coords = (%v, %v)", p1.Lat, p1.Lon)
	}
}

func TestDecodeTCXMissingActivity(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no activities": `<TrainingCenterDatabase></TrainingCenterDatabase>`,
		"empty list":    `<TrainingCenterDatabase><Activities/></TrainingCenterDatabase>`,
		"not xml":       `{ "json": true }`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTCX([]byte(body))
			if !trackerr.IsKind(err, trackerr.KindInvalidFormat) {
				t.Errorf("got %v, want invalid_format", err)
			}
		})
	}
}

package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackfix-data/trackfix/internal/trackerr"
)

func TestSemicirclesToDegrees(t *testing.T) {
	t.Parallel()

	// 2^29 semicircles is exactly 45 degrees (factor 180 / 2^31)
	assert.InDelta(t, 45.0, semicirclesToDegrees(0x20000000), 1e-9)
	assert.InDelta(t, -45.0, semicirclesToDegrees(-0x20000000), 1e-9)
	assert.InDelta(t, 90.0, semicirclesToDegrees(0x40000000), 1e-9)
	assert.InDelta(t, 0.0, semicirclesToDegrees(0), 1e-9)
}

// encodeFITFixture builds a small activity file in memory.
func encodeFITFixture(t *testing.T) []byte {
	t.Helper()

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Second)

	act := filedef.NewActivity()
	act.FileId = *mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetTimeCreated(start).
		SetManufacturer(typedef.ManufacturerGarmin).
		SetProduct(1735)

	act.Sports = append(act.Sports, mesgdef.NewSport(nil).
		SetSport(typedef.SportCycling))

	rec0 := mesgdef.NewRecord(nil).
		SetTimestamp(start).
		SetPositionLat(0x20000000).  // 45 degrees
		SetPositionLong(-0x10000000). // -22.5 degrees
		SetAltitude(uint16((100 + 500) * 5)).
		SetHeartRate(150).
		SetCadence(90).
		SetPower(250)
	act.Records = append(act.Records, rec0)

	rec1 := mesgdef.NewRecord(nil).
		SetTimestamp(start.Add(10 * time.Second)).
		SetPositionLat(0x20000100).
		SetPositionLong(-0x10000000)
	act.Records = append(act.Records, rec1)

	// record without coordinates, must be skipped on decode
	act.Records = append(act.Records, mesgdef.NewRecord(nil).
		SetTimestamp(start.Add(20*time.Second)).
		SetHeartRate(151))

	act.Sessions = append(act.Sessions, mesgdef.NewSession(nil).
		SetTimestamp(end).
		SetStartTime(start).
		SetTotalElapsedTime(100000). // scale 1000 -> 100 s
		SetTotalDistance(25000).     // scale 100 -> 250 m
		SetSport(typedef.SportCycling))

	act.Activity = mesgdef.NewActivity(nil).
		SetTimestamp(end).
		SetType(typedef.ActivityManual).
		SetNumSessions(1)

	fit := act.ToFIT(nil)
	var buf bytes.Buffer
	require.NoError(t, encoder.New(&buf).Encode(&fit))
	return buf.Bytes()
}

func TestDecodeFIT(t *testing.T) {
	t.Parallel()

	tr, err := DecodeFIT(encodeFITFixture(t))
	require.NoError(t, err)

	assert.Equal(t, "fit", tr.Metadata.Format)
	assert.Equal(t, "garmin", tr.Metadata.Manufacturer)
	assert.Equal(t, "1735", tr.Metadata.Product)
	assert.Equal(t, "cycling", tr.Metadata.Sport)
	require.NotNil(t, tr.Metadata.StartTime)
	assert.Equal(t, "2024-06-01T10:00:00Z", tr.Metadata.StartTime.Format(time.RFC3339))
	require.NotNil(t, tr.Metadata.Duration)
	assert.InDelta(t, 100.0, *tr.Metadata.Duration, 1e-6)
	require.NotNil(t, tr.Metadata.Distance)
	assert.InDelta(t, 250.0, *tr.Metadata.Distance, 1e-6)

	// all records land in a single segment; the coordinate-less record is dropped
	require.Len(t, tr.Segments, 1)
	require.Len(t, tr.Segments[0].Points, 2)

	p0 := tr.Segments[0].Points[0]
	assert.InDelta(t, 45.0, p0.Lat, 1e-9)
	assert.InDelta(t, -22.5, p0.Lon, 1e-9)
	require.NotNil(t, p0.Ele)
	assert.InDelta(t, 100.0, *p0.Ele, 1e-6)
	require.NotNil(t, p0.Time)
	assert.Equal(t, "2024-06-01T10:00:00Z", p0.Time.Format(time.RFC3339))
	require.NotNil(t, p0.HR)
	assert.Equal(t, 150, *p0.HR)
	require.NotNil(t, p0.Cadence)
	assert.Equal(t, 90, *p0.Cadence)
	require.NotNil(t, p0.Power)
	assert.Equal(t, 250, *p0.Power)
	assert.NotEmpty(t, p0.ID)

	p1 := tr.Segments[0].Points[1]
	assert.Nil(t, p1.Ele)
	assert.Nil(t, p1.HR)
	assert.Nil(t, p1.Cadence)
	assert.Nil(t, p1.Power)
}

func TestDecodeFITGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeFIT([]byte("definitely not a fit file"))
	require.Error(t, err)
	assert.Equal(t, trackerr.KindInvalidFormat, trackerr.KindOf(err))
}

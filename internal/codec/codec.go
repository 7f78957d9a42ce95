// Package codec decodes uploaded activity files (GPX, FIT, TCX) into the
// editable track model and encodes edited tracks back out. Dispatch is by
// filename suffix on decode and by format tag on encode; the codecs
// themselves are flat, with no shared machinery beyond the model.
package codec

import (
	"path/filepath"
	"strings"

	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// Format tags carried in track metadata.
const (
	FormatGPX = "gpx"
	FormatFIT = "fit"
	FormatTCX = "tcx"
)

// Decode routes the file to a codec by its case-insensitive filename
// suffix. The caller is expected to have read the content fully.
func Decode(filename string, data []byte) (*track.Track, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gpx":
		return DecodeGPX(data)
	case ".fit":
		return DecodeFIT(data)
	case ".tcx":
		return DecodeTCX(data)
	default:
		return nil, trackerr.New(trackerr.KindUnsupportedFormat, "unsupported format: %s", filename)
	}
}

// Encode serializes the track in the requested format. Only GPX has an
// encoder in this version; FIT and TCX exports are refused.
func Encode(t *track.Track, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatGPX:
		return EncodeGPX(t)
	case FormatFIT, FormatTCX:
		return nil, trackerr.New(trackerr.KindUnsupportedExportFormat, "no %s encoder", format)
	default:
		return nil, trackerr.New(trackerr.KindUnsupportedExportFormat, "unknown export format: %s", format)
	}
}

// MediaType returns the media type for an export format.
func MediaType(format string) string {
	switch strings.ToLower(format) {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatFIT:
		return "application/vnd.ant.fit"
	case FormatTCX:
		return "application/vnd.garmin.tcx+xml"
	default:
		return "application/octet-stream"
	}
}

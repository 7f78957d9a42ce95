package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by ParseISO8601, tried in order. Garmin devices write
// RFC3339 with Z; some exporters omit the zone entirely, which is read
// as UTC.
var iso8601Layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseISO8601 parses an ISO-8601 timestamp and normalises it to UTC.
func ParseISO8601(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FormatISO8601 renders t in UTC with a trailing Z, the form every codec
// and the external JSON contract use.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z07:00")
}

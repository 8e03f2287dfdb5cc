package database

import (
	"strings"
	"time"
)

// createdLayouts are tried in order when normalizing capture timestamps.
// EXIF's colon-separated form comes first since it is the most common source.
var createdLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02",
}

// parseCreated parses a raw timestamp string against the known layouts.
func parseCreated(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// deriveCreatedFields computes the denormalized (created_ts, created_date,
// created_year) triple from a capture timestamp, falling back to the file
// modification time when the capture time is absent or unparseable. All
// three results are nil when neither source parses.
func deriveCreatedFields(dateTaken, modified *string) (*int64, *string, *int64) {
	for _, src := range []*string{dateTaken, modified} {
		if src == nil {
			continue
		}
		t, ok := parseCreated(*src)
		if !ok {
			continue
		}
		ts := t.Unix()
		date := t.Format("2006-01-02")
		year := int64(t.Year())
		return &ts, &date, &year
	}
	return nil, nil, nil
}

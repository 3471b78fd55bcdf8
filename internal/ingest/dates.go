package ingest

import (
	"strings"
	"time"
)

// dateLayouts are tried in order: d.m.Y, Y-m-d, d/m/Y, d-m-Y, Y/m/d.
var dateLayouts = []string{
	"2.1.2006",
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
}

// ParseDate normalises a free-form date string to a UTC calendar day.
// It reports false for empty or unrecognised input.
func ParseDate(value string) (time.Time, bool) {
	s := stripTimeOfDay(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseISODate accepts only YYYY-MM-DD, as required by the fixed schema.
func ParseISODate(value string) (time.Time, bool) {
	s := stripTimeOfDay(value)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// stripTimeOfDay drops a trailing "15:04:05" or "T15:04:05" part.
func stripTimeOfDay(value string) string {
	s := strings.TrimSpace(value)
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	return s
}

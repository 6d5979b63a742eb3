package util

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the layouts seen in exported dataset files, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate parses a dataset date cell. Date-only and naive datetime values are
// read as UTC; a bare integer is taken as unix seconds.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 && len(s) > 8 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatDate renders a date the way chart axes expect it: date only when the
// time part is midnight.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

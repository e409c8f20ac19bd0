package apitable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when a literal arrives as text.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006",
}

// parseLocalDate interprets a filter literal as a local timestamp.
func parseLocalDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.ParseInLocation(layout, d, time.Local); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("can't parse %q as a date", d)
	default:
		return time.Time{}, fmt.Errorf("can't parse %T value as a date", v)
	}
}

// parseInterval reads a window size like "1d", "12h", or "2w". A bare
// number counts days. Anything unreadable falls back to one day, the same
// default the interval directive itself has.
func parseInterval(s string) time.Duration {
	s = strings.TrimSpace(strings.ToLower(s))
	unit := 24 * time.Hour
	switch {
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
		s = strings.TrimSuffix(s, "w")
	case strings.HasSuffix(s, "d"):
		s = strings.TrimSuffix(s, "d")
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
		s = strings.TrimSuffix(s, "h")
	case strings.HasSuffix(s, "m"):
		unit = time.Minute
		s = strings.TrimSuffix(s, "m")
	}
	count, err := strconv.Atoi(s)
	if err != nil || count <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(count) * unit
}

// formatDay renders a bound at calendar-day granularity, which is what the
// start_/end_ parameter convention expects.
func formatDay(d time.Time) string {
	return d.Format("2006-01-02")
}

// Package timefmt renders record timestamps as human-readable labels.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Clock supplies the current time. Builds inject a fixed clock so the same
// inputs render identical pages.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// DateLayout is the absolute date form used on pages.
const DateLayout = "Jan 2, 2006"

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// Parse accepts RFC3339 timestamps, with or without fractional seconds.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Relative labels raw relative to now, e.g. "3 days ago". Future instants read
// "just now"; malformed or empty input yields "".
func Relative(raw string, now time.Time) string {
	t, ok := Parse(raw)
	if !ok {
		return ""
	}
	return RelativeTime(t, now)
}

// RelativeTime is Relative for an already parsed instant.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < day:
		return ago(int(d/time.Hour), "hour")
	case d < week:
		return ago(int(d/day), "day")
	case d < 4*week:
		return ago(int(d/week), "week")
	case d < year:
		return ago(max(1, int(d/month)), "month")
	default:
		return ago(int(d/year), "year")
	}
}

// Absolute formats raw as "Jan 2, 2006" in the timestamp's own offset.
// Malformed or empty input yields "".
func Absolute(raw string) string {
	t, ok := Parse(raw)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

func ago(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

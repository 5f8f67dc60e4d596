package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelative(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"seconds", at(30 * time.Second), "just now"},
		{"forty five seconds", at(45 * time.Second), "just now"},
		{"future", now.Add(time.Hour).Format(time.RFC3339), "just now"},
		{"one minute", at(time.Minute), "1 minute ago"},
		{"ninety seconds", at(90 * time.Second), "1 minute ago"},
		{"minutes", at(59 * time.Minute), "59 minutes ago"},
		{"one hour", at(time.Hour), "1 hour ago"},
		{"hours", at(23 * time.Hour), "23 hours ago"},
		{"one day", at(24 * time.Hour), "1 day ago"},
		{"days", at(3 * 24 * time.Hour), "3 days ago"},
		{"one week", at(7 * 24 * time.Hour), "1 week ago"},
		{"weeks", at(27 * 24 * time.Hour), "3 weeks ago"},
		{"one month", at(28 * 24 * time.Hour), "1 month ago"},
		{"months", at(90 * 24 * time.Hour), "3 months ago"},
		{"one year", at(365 * 24 * time.Hour), "1 year ago"},
		{"years", at(3 * 365 * 24 * time.Hour), "3 years ago"},
		{"offset", "2024-06-15T13:30:00+02:00", "30 minutes ago"},
		{"fractional", "2024-06-15T11:59:59.5Z", "just now"},
		{"empty", "", ""},
		{"malformed", "yesterday", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relative(tt.raw, now))
		})
	}
}

func TestAbsolute(t *testing.T) {
	assert.Equal(t, "Jan 2, 2006", Absolute("2006-01-02T15:04:05Z"))
	assert.Equal(t, "Mar 9, 2024", Absolute("2024-03-09T23:30:00-05:00"))
	assert.Equal(t, "", Absolute(""))
	assert.Equal(t, "", Absolute("2024-13-01"))
}

func TestClocks(t *testing.T) {
	fixed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, FixedClock(fixed).Now())
	assert.WithinDuration(t, time.Now(), SystemClock{}.Now(), time.Second)
}

package view

import (
	"strings"
	"time"
)

// Accepted timestamp shapes. Offset-less ones are read as local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TimeFormat produces the human-readable label shown next to a message.
type TimeFormat struct {
	TimeLayout string
	DateLayout string
	Location   *time.Location
}

// DefaultTimeFormat renders like "14:05 5/1/2024".
var DefaultTimeFormat = TimeFormat{TimeLayout: "15:04", DateLayout: "1/2/2006"}

// ParseTimestamp reads an ISO-compatible timestamp.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Label formats ts as time-of-day plus date. Unparseable input is returned as-is.
func (f TimeFormat) Label(ts string) string {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	t, ok := ParseTimestamp(ts, loc)
	if !ok {
		return ts
	}
	t = t.In(loc)

	timeLayout, dateLayout := f.TimeLayout, f.DateLayout
	if timeLayout == "" {
		timeLayout = DefaultTimeFormat.TimeLayout
	}
	if dateLayout == "" {
		dateLayout = DefaultTimeFormat.DateLayout
	}
	return t.Format(timeLayout) + " " + t.Format(dateLayout)
}

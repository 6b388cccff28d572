package util

import (
	"fmt"
	"strconv"
	"time"
)

// DayFormat is the calendar-day key used for daily grouping.
const DayFormat = "2006-01-02"

// TimestampFormat renders full timestamps in API payloads.
const TimestampFormat = time.RFC3339

// ParseTime tries RFC3339, RFC3339Nano, two naive layouts (treated as UTC)
// and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseDateBound parses a range boundary. Empty means unbounded (nil).
// A bare calendar day widens to its first or last instant so that
// "2024-03-05".."2024-03-05" covers the whole day.
func ParseDateBound(s string, end bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(DayFormat, s, time.UTC); err == nil {
		if end {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if t, ok := ParseTime(s); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

// ParseDateRange parses both boundaries and rejects inverted ranges.
func ParseDateRange(start, end string) (*time.Time, *time.Time, error) {
	from, err := ParseDateBound(start, false)
	if err != nil {
		return nil, nil, err
	}
	to, err := ParseDateBound(end, true)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("start date %s after end date %s", start, end)
	}
	return from, to, nil
}

// DayKey buckets a timestamp into its calendar day, in the timestamp's own
// offset so imported local session times keep their trading day.
func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

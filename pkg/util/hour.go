package util

import (
	"strconv"
	"time"
)

// ParseTimestamp parses a unix-seconds string. Returns (ts, true) if it
// is a valid non-negative integer.
func ParseTimestamp(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts < 0 {
		return 0, false
	}
	return ts, true
}

// ParsePriceCents parses a decimal price string ("6421.37") into minor
// currency units, truncating below a cent.
func ParsePriceCents(s string) (uint32, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return uint32(f * 100.0), true
}

// TruncateHour rounds t down to the hour boundary in UTC.
func TruncateHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

package models

import "time"

// HourSeconds is the resolution of the stored series. Every Sample
// timestamp is an exact multiple of it.
const HourSeconds int64 = 3600

// Sample is one durably stored hourly price observation.
// Timestamp is unix seconds, hour-aligned; PriceCents is the price in
// minor currency units and is never negative.
type Sample struct {
	Timestamp  int64  `json:"ts"`
	PriceCents uint32 `json:"price_cents"`
}

// Point is one (x, y) pair returned by a range query. A Point may be a
// real Sample or a value synthesized at a query boundary.
type Point struct {
	X int64  `json:"x"`
	Y uint32 `json:"y"`
}

// AlignHour truncates a unix timestamp down to its hour boundary.
func AlignHour(ts int64) int64 {
	if ts < 0 {
		return 0
	}
	return ts - ts%HourSeconds
}

// HourAligned reports whether ts sits exactly on an hour boundary.
func HourAligned(ts int64) bool {
	return ts >= 0 && ts%HourSeconds == 0
}

// CurrentHour returns the hour-aligned timestamp for now.
func CurrentHour(now time.Time) int64 {
	return AlignHour(now.Unix())
}

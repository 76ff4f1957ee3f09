package models

import (
	"testing"
	"time"
)

func TestAlignHour(t *testing.T) {
	cases := []struct{ in, want int64 }{
		{0, 0},
		{1, 0},
		{3599, 0},
		{3600, 3600},
		{3601, 3600},
		{7199, 3600},
		{-5, 0},
		{1537543999, 1537542000},
	}
	for _, tc := range cases {
		if got := AlignHour(tc.in); got != tc.want {
			t.Fatalf("AlignHour(%d): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestHourAligned(t *testing.T) {
	if !HourAligned(0) || !HourAligned(3600) || !HourAligned(1537542000) {
		t.Fatal("expected hour boundaries to be aligned")
	}
	if HourAligned(1) || HourAligned(3599) || HourAligned(-3600) {
		t.Fatal("expected off-boundary timestamps to be rejected")
	}
}

func TestCurrentHour(t *testing.T) {
	now := time.Unix(1537543999, 0)
	if got := CurrentHour(now); got != 1537542000 {
		t.Fatalf("expected 1537542000, got %d", got)
	}
	if got := CurrentHour(time.Unix(1537542000, 0)); got != 1537542000 {
		t.Fatalf("boundary instant must map to itself, got %d", got)
	}
}

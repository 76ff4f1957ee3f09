package usecase

import (
	"context"
	"fmt"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
)

// DefaultMaxPoints bounds the response size when the caller does not
// ask for a specific budget.
const DefaultMaxPoints = 200

// RangeQueryEngine answers range queries over the series store. The
// returned sequence always starts at x == begin and ends at x == end;
// boundary values are synthesized by linear interpolation against the
// nearest neighbors when no stored sample sits exactly on a boundary.
// Gaps strictly inside the range are left to the consumer's line
// rendering and are not filled point by point.
type RangeQueryEngine struct {
	store repository.SeriesStore
}

// NewRangeQueryEngine creates a range query engine.
func NewRangeQueryEngine(store repository.SeriesStore) *RangeQueryEngine {
	return &RangeQueryEngine{store: store}
}

// Query returns at most maxPoints points covering [begin, end].
// Returns models.ErrInvalidRange when begin > end and models.ErrNoData
// when the series holds no sample on either side of the range.
func (e *RangeQueryEngine) Query(ctx context.Context, begin, end int64, maxPoints int) ([]models.Point, error) {
	if begin > end {
		return nil, models.ErrInvalidRange
	}
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}

	samples, err := e.store.Scan(ctx, begin, end)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}

	beginPt, ok, err := e.boundaryPoint(ctx, begin, samples, true)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	if !ok {
		return nil, models.ErrNoData
	}

	if begin == end {
		// Degenerate range: one interpolated value, duplicated so the
		// consumer still gets a drawable segment.
		return []models.Point{beginPt, beginPt}, nil
	}

	endPt, ok, err := e.boundaryPoint(ctx, end, samples, false)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	if !ok {
		return nil, models.ErrNoData
	}

	pts := make([]models.Point, 0, len(samples)+2)
	pts = append(pts, beginPt)
	for _, s := range samples {
		if s.Timestamp > begin && s.Timestamp < end {
			pts = append(pts, models.Point{X: s.Timestamp, Y: s.PriceCents})
		}
	}
	pts = append(pts, endPt)

	pts = downsample(pts, maxPoints)
	clampPoints(pts, begin, end)
	return pts, nil
}

// boundaryPoint synthesizes the point at exactly t. In-range samples
// double as the inner neighbor so the extra store lookups only reach
// outside the scanned window.
func (e *RangeQueryEngine) boundaryPoint(ctx context.Context, t int64, samples []models.Sample, isBegin bool) (models.Point, bool, error) {
	// A stored sample on the boundary needs no synthesis.
	if len(samples) > 0 {
		if isBegin && samples[0].Timestamp == t {
			return models.Point{X: t, Y: samples[0].PriceCents}, true, nil
		}
		if !isBegin && samples[len(samples)-1].Timestamp == t {
			return models.Point{X: t, Y: samples[len(samples)-1].PriceCents}, true, nil
		}
	}

	var prev, next models.Sample
	var prevOK, nextOK bool
	var err error

	if isBegin {
		prev, prevOK, err = e.store.NearestAtOrBefore(ctx, t)
		if err != nil {
			return models.Point{}, false, err
		}
		if len(samples) > 0 {
			next, nextOK = samples[0], true
		} else {
			next, nextOK, err = e.store.NearestAtOrAfter(ctx, t)
			if err != nil {
				return models.Point{}, false, err
			}
		}
	} else {
		next, nextOK, err = e.store.NearestAtOrAfter(ctx, t)
		if err != nil {
			return models.Point{}, false, err
		}
		if len(samples) > 0 {
			prev, prevOK = samples[len(samples)-1], true
		} else {
			prev, prevOK, err = e.store.NearestAtOrBefore(ctx, t)
			if err != nil {
				return models.Point{}, false, err
			}
		}
	}

	switch {
	case prevOK && nextOK:
		return models.Point{X: t, Y: lerp(prev, next, t)}, true, nil
	case prevOK:
		// No later neighbor: extrapolate the last known value forward.
		return models.Point{X: t, Y: prev.PriceCents}, true, nil
	case nextOK:
		// No earlier neighbor: extrapolate the first known value back.
		return models.Point{X: t, Y: next.PriceCents}, true, nil
	default:
		return models.Point{}, false, nil
	}
}

// lerp linearly interpolates the price at t between two samples,
// rounding half away from zero on minor currency units.
func lerp(a, b models.Sample, t int64) uint32 {
	if b.Timestamp == a.Timestamp {
		return a.PriceCents
	}
	dt := b.Timestamp - a.Timestamp
	num := (int64(b.PriceCents) - int64(a.PriceCents)) * (t - a.Timestamp)
	var off int64
	if num >= 0 {
		off = (num + dt/2) / dt
	} else {
		off = (num - dt/2) / dt
	}
	return uint32(int64(a.PriceCents) + off)
}

// downsample reduces pts to at most max points by fixed-stride
// decimation of the interior. The first and last points are always
// kept.
func downsample(pts []models.Point, max int) []models.Point {
	if len(pts) <= max {
		return pts
	}
	interior := pts[1 : len(pts)-1]
	keep := max - 2

	out := make([]models.Point, 0, max)
	out = append(out, pts[0])
	if keep > 0 {
		stride := (len(interior) + keep - 1) / keep
		for i := 0; i < len(interior); i += stride {
			out = append(out, interior[i])
		}
	}
	out = append(out, pts[len(pts)-1])
	return out
}

// clampPoints forces every x into [begin, end].
func clampPoints(pts []models.Point, begin, end int64) {
	for i := range pts {
		if pts[i].X < begin {
			pts[i].X = begin
		}
		if pts[i].X > end {
			pts[i].X = end
		}
	}
}

package repository

import (
	"context"

	"PriceTrend/internal/domain/models"
)

// SeriesStore is the durable hourly price series. Row writes are atomic
// and UpsertIfAbsent gives first-write-wins semantics, so the importer
// and the poller may race on a timestamp without coordination.
type SeriesStore interface {
	// Get returns the sample at exactly ts, if present.
	Get(ctx context.Context, ts int64) (models.Sample, bool, error)

	// Scan returns all samples with begin <= ts <= end ordered by
	// ascending timestamp. Cost is proportional to the rows in range.
	Scan(ctx context.Context, begin, end int64) ([]models.Sample, error)

	// UpsertIfAbsent inserts the sample unless a row already exists for
	// ts. Reports whether a row was inserted.
	UpsertIfAbsent(ctx context.Context, ts int64, priceCents uint32) (bool, error)

	// NearestAtOrBefore returns the sample with the greatest ts' <= ts.
	NearestAtOrBefore(ctx context.Context, ts int64) (models.Sample, bool, error)

	// NearestAtOrAfter returns the sample with the smallest ts' >= ts.
	NearestAtOrAfter(ctx context.Context, ts int64) (models.Sample, bool, error)

	// Latest returns the newest sample in the series.
	Latest(ctx context.Context) (models.Sample, bool, error)

	Health(ctx context.Context) error
	Close() error
}

// Quote is one price observation from the live feed.
type Quote struct {
	Timestamp  int64
	PriceCents uint32
}

// PriceFeed provides the current price of the tracked asset. A failed
// fetch is reported as an error and never written to the series.
type PriceFeed interface {
	Current(ctx context.Context) (Quote, error)
	Close() error
}

// Publisher emits newly ingested samples for downstream consumers.
type Publisher interface {
	PublishSample(ctx context.Context, s models.Sample) error
	Close() error
}

// Metrics records operational counters for ingestion and querying.
type Metrics interface {
	RecordSampleIngested(source string)
	RecordSampleSkipped(source string)
	RecordError(kind string)
	RecordLastPrice(priceCents uint32)
	RecordLatency(op string, seconds float64)
	RecordCacheResult(hit bool)
}

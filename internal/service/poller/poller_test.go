package poller

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	"PriceTrend/pkg/logger"
)

type stubStore struct {
	samples map[int64]uint32
	failAll bool
}

var errStoreDown = errors.New("store down")

func newStubStore() *stubStore {
	return &stubStore{samples: make(map[int64]uint32)}
}

func (s *stubStore) Get(_ context.Context, ts int64) (models.Sample, bool, error) {
	p, ok := s.samples[ts]
	return models.Sample{Timestamp: ts, PriceCents: p}, ok, nil
}

func (s *stubStore) Scan(context.Context, int64, int64) ([]models.Sample, error) {
	return nil, nil
}

func (s *stubStore) UpsertIfAbsent(_ context.Context, ts int64, price uint32) (bool, error) {
	if s.failAll {
		return false, errStoreDown
	}
	if _, ok := s.samples[ts]; ok {
		return false, nil
	}
	s.samples[ts] = price
	return true, nil
}

func (s *stubStore) NearestAtOrBefore(context.Context, int64) (models.Sample, bool, error) {
	return models.Sample{}, false, nil
}

func (s *stubStore) NearestAtOrAfter(context.Context, int64) (models.Sample, bool, error) {
	return models.Sample{}, false, nil
}

func (s *stubStore) Latest(context.Context) (models.Sample, bool, error) {
	if s.failAll {
		return models.Sample{}, false, errStoreDown
	}
	if len(s.samples) == 0 {
		return models.Sample{}, false, nil
	}
	keys := make([]int64, 0, len(s.samples))
	for k := range s.samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	last := keys[len(keys)-1]
	return models.Sample{Timestamp: last, PriceCents: s.samples[last]}, true, nil
}

func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

type stubFeed struct {
	quote repository.Quote
	err   error
	calls int
}

func (f *stubFeed) Current(context.Context) (repository.Quote, error) {
	f.calls++
	if f.err != nil {
		return repository.Quote{}, f.err
	}
	return f.quote, nil
}

func (f *stubFeed) Close() error { return nil }

type stubPublisher struct {
	published []models.Sample
	err       error
}

func (p *stubPublisher) PublishSample(_ context.Context, s models.Sample) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, s)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordSampleIngested(string)   {}
func (stubMetrics) RecordSampleSkipped(string)    {}
func (stubMetrics) RecordError(string)            {}
func (stubMetrics) RecordLastPrice(uint32)        {}
func (stubMetrics) RecordLatency(string, float64) {}
func (stubMetrics) RecordCacheResult(bool)        {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestPoller(t *testing.T, store *stubStore, feed *stubFeed, pub *stubPublisher, now time.Time) *Poller {
	t.Helper()
	p := New(store, feed, pub, stubMetrics{}, testLogger(t), time.Hour)
	p.now = func() time.Time { return now }
	return p
}

func TestTickStoresCurrentHourSample(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hour := models.CurrentHour(now)
	store := newStubStore()
	feed := &stubFeed{quote: repository.Quote{Timestamp: hour, PriceCents: 642137}}
	pub := &stubPublisher{}
	p := newTestPoller(t, store, feed, pub, now)

	p.Tick(context.Background())

	if price, ok := store.samples[hour]; !ok || price != 642137 {
		t.Fatalf("expected sample at %d with 642137, got %v", hour, store.samples)
	}
	if len(pub.published) != 1 || pub.published[0].Timestamp != hour {
		t.Fatalf("expected one published sample for %d, got %v", hour, pub.published)
	}
	for ts := range store.samples {
		if ts > now.Unix() {
			t.Fatalf("sample %d lies in the future", ts)
		}
	}
}

func TestTickSkipsWhenSeriesIsFresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newStubStore()
	// Latest sample is a few minutes old, well under half the interval.
	store.samples[now.Unix()-600] = 100000
	feed := &stubFeed{quote: repository.Quote{PriceCents: 642137}}
	p := newTestPoller(t, store, feed, &stubPublisher{}, now)

	p.Tick(context.Background())

	if feed.calls != 0 {
		t.Fatalf("fresh series must skip the feed call, saw %d calls", feed.calls)
	}
	if len(store.samples) != 1 {
		t.Fatalf("no new sample expected, got %v", store.samples)
	}
}

func TestTickPollsWhenSeriesIsStale(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hour := models.CurrentHour(now)
	store := newStubStore()
	store.samples[hour-2*models.HourSeconds] = 100000
	feed := &stubFeed{quote: repository.Quote{PriceCents: 642137}}
	p := newTestPoller(t, store, feed, &stubPublisher{}, now)

	p.Tick(context.Background())

	if feed.calls != 1 {
		t.Fatalf("stale series must trigger a feed call, saw %d", feed.calls)
	}
	if store.samples[hour] != 642137 {
		t.Fatalf("expected new sample at %d, got %v", hour, store.samples)
	}
}

func TestTickToleratesFeedFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newStubStore()
	feed := &stubFeed{err: errors.New("feed down")}
	pub := &stubPublisher{}
	p := newTestPoller(t, store, feed, pub, now)

	p.Tick(context.Background())

	if len(store.samples) != 0 {
		t.Fatalf("failed fetch must not write a sample, got %v", store.samples)
	}
	if len(pub.published) != 0 {
		t.Fatalf("failed fetch must not publish, got %v", pub.published)
	}
}

func TestTickDoesNotOverwriteExistingHour(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hour := models.CurrentHour(now)
	store := newStubStore()
	store.samples[hour] = 111111
	feed := &stubFeed{quote: repository.Quote{PriceCents: 642137}}
	pub := &stubPublisher{}
	// Shrink the interval so the freshness guard does not kick in and
	// the write path itself is exercised.
	p := New(store, feed, pub, stubMetrics{}, testLogger(t), time.Hour)
	p.now = func() time.Time { return now }
	p.interval = time.Minute

	p.Tick(context.Background())

	if store.samples[hour] != 111111 {
		t.Fatalf("first write must win, got %d", store.samples[hour])
	}
	if len(pub.published) != 0 {
		t.Fatalf("duplicate hour must not be published, got %v", pub.published)
	}
}

func TestTickPublishFailureIsNonFatal(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hour := models.CurrentHour(now)
	store := newStubStore()
	feed := &stubFeed{quote: repository.Quote{PriceCents: 642137}}
	pub := &stubPublisher{err: errors.New("broker down")}
	p := newTestPoller(t, store, feed, pub, now)

	p.Tick(context.Background())

	if store.samples[hour] != 642137 {
		t.Fatalf("sample must be stored even when publishing fails, got %v", store.samples)
	}
}

func TestStartStop(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newStubStore()
	feed := &stubFeed{quote: repository.Quote{PriceCents: 642137}}
	p := newTestPoller(t, store, feed, &stubPublisher{}, now)

	p.Start(context.Background())
	p.Stop()

	// The immediate first tick ran before Stop returned.
	hour := models.CurrentHour(now)
	if store.samples[hour] != 642137 {
		t.Fatalf("first tick must run on start, got %v", store.samples)
	}
}

package importer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"PriceTrend/internal/domain/models"
	"PriceTrend/pkg/logger"
)

type stubStore struct {
	samples map[int64]uint32
	failTS  int64
}

func newStubStore() *stubStore {
	return &stubStore{samples: make(map[int64]uint32), failTS: -1}
}

func (s *stubStore) Get(_ context.Context, ts int64) (models.Sample, bool, error) {
	p, ok := s.samples[ts]
	return models.Sample{Timestamp: ts, PriceCents: p}, ok, nil
}

func (s *stubStore) Scan(_ context.Context, begin, end int64) ([]models.Sample, error) {
	var out []models.Sample
	for ts, p := range s.samples {
		if ts >= begin && ts <= end {
			out = append(out, models.Sample{Timestamp: ts, PriceCents: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *stubStore) UpsertIfAbsent(_ context.Context, ts int64, price uint32) (bool, error) {
	if ts == s.failTS {
		return false, os.ErrDeadlineExceeded
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
	return models.Sample{}, false, nil
}

func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

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

func writeHistory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write history file: %v", err)
	}
	return path
}

func TestRunImportsRowsAndSkipsHeader(t *testing.T) {
	path := writeHistory(t, "unix_ts,price_usd\n3600,100.50\n7200,101.00\n10800,99.99\n")
	store := newStubStore()
	imp := New(store, stubMetrics{}, testLogger(t), path)

	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := map[int64]uint32{3600: 10050, 7200: 10100, 10800: 9999}
	if len(store.samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(store.samples), store.samples)
	}
	for ts, price := range want {
		if store.samples[ts] != price {
			t.Fatalf("ts %d: expected %d cents, got %d", ts, price, store.samples[ts])
		}
	}
	if !imp.Finished() {
		t.Fatal("importer must report finished after Run")
	}
	select {
	case <-imp.Done():
	default:
		t.Fatal("done channel must be closed after Run")
	}
}

func TestRunSkipsMalformedRows(t *testing.T) {
	content := "ts,price\n" +
		"3600,100.00\n" +
		"garbage line\n" +
		"7200,not-a-price\n" +
		"not-a-ts,50.00\n" +
		"7201,102.00\n" + // not hour aligned
		"7200,101.00\n" +
		"3600,90.00\n" + // out of order, duplicate hour
		"10800,103.00\n"
	path := writeHistory(t, content)
	store := newStubStore()
	imp := New(store, stubMetrics{}, testLogger(t), path)

	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := map[int64]uint32{3600: 10000, 7200: 10100, 10800: 10300}
	if len(store.samples) != len(want) {
		t.Fatalf("expected %d samples, got %v", len(want), store.samples)
	}
	for ts, price := range want {
		if store.samples[ts] != price {
			t.Fatalf("ts %d: expected %d cents, got %d", ts, price, store.samples[ts])
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	path := writeHistory(t, "ts,price\n3600,100.00\n7200,101.00\n")
	store := newStubStore()
	// First-write-wins: a pre-existing sample keeps its value.
	store.samples[3600] = 42

	imp := New(store, stubMetrics{}, testLogger(t), path)
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.samples[3600] != 42 {
		t.Fatalf("existing sample must not be overwritten, got %d", store.samples[3600])
	}
	if store.samples[7200] != 10100 {
		t.Fatalf("new sample missing, got %v", store.samples)
	}
}

func TestRunContinuesPastStoreErrors(t *testing.T) {
	path := writeHistory(t, "ts,price\n3600,100.00\n7200,101.00\n10800,102.00\n")
	store := newStubStore()
	store.failTS = 7200

	imp := New(store, stubMetrics{}, testLogger(t), path)
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("run must not abort on a single row failure: %v", err)
	}
	if _, ok := store.samples[3600]; !ok {
		t.Fatal("row before the failure missing")
	}
	if _, ok := store.samples[10800]; !ok {
		t.Fatal("row after the failure missing")
	}
}

func TestRunMissingFile(t *testing.T) {
	imp := New(newStubStore(), stubMetrics{}, testLogger(t), filepath.Join(t.TempDir(), "nope.csv"))
	if err := imp.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing history file")
	}
	if !imp.Finished() {
		t.Fatal("importer must still report finished after a failed run")
	}
}

func TestDisabledImportFinishesImmediately(t *testing.T) {
	imp := New(newStubStore(), stubMetrics{}, testLogger(t), "")
	if !imp.Finished() {
		t.Fatal("empty path must mark the import finished")
	}
	select {
	case <-imp.Done():
	default:
		t.Fatal("done channel must be closed for a disabled import")
	}
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("disabled run must be a no-op: %v", err)
	}
}

func TestParseRow(t *testing.T) {
	cases := []struct {
		line  string
		ts    int64
		price uint32
		ok    bool
	}{
		{"3600,100.50", 3600, 10050, true},
		{"3600, 100.50 ", 3600, 10050, true},
		{"3600,100", 3600, 10000, true},
		{"3600,100.509", 3600, 10050, true}, // extra precision truncated
		{"3600", 0, 0, false},
		{",100.50", 0, 0, false},
		{"abc,100.50", 0, 0, false},
		{"3600,", 0, 0, false},
		{"-3600,100.50", 0, 0, false},
	}
	for _, tc := range cases {
		ts, price, ok := parseRow(tc.line)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.line, tc.ok, ok)
		}
		if !ok {
			continue
		}
		if ts != tc.ts || price != tc.price {
			t.Fatalf("%q: expected (%d,%d), got (%d,%d)", tc.line, tc.ts, tc.price, ts, price)
		}
	}
}

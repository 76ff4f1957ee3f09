package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/labstack/echo/v4"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/usecase"
	"PriceTrend/pkg/logger"
)

type stubStore struct {
	samples   map[int64]uint32
	unhealthy bool
}

func newStubStore(samples ...models.Sample) *stubStore {
	s := &stubStore{samples: make(map[int64]uint32)}
	for _, smp := range samples {
		s.samples[smp.Timestamp] = smp.PriceCents
	}
	return s
}

func (s *stubStore) sorted() []int64 {
	keys := make([]int64, 0, len(s.samples))
	for k := range s.samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *stubStore) Get(_ context.Context, ts int64) (models.Sample, bool, error) {
	p, ok := s.samples[ts]
	return models.Sample{Timestamp: ts, PriceCents: p}, ok, nil
}

func (s *stubStore) Scan(_ context.Context, begin, end int64) ([]models.Sample, error) {
	var out []models.Sample
	for _, ts := range s.sorted() {
		if ts >= begin && ts <= end {
			out = append(out, models.Sample{Timestamp: ts, PriceCents: s.samples[ts]})
		}
	}
	return out, nil
}

func (s *stubStore) UpsertIfAbsent(_ context.Context, ts int64, price uint32) (bool, error) {
	if _, ok := s.samples[ts]; ok {
		return false, nil
	}
	s.samples[ts] = price
	return true, nil
}

func (s *stubStore) NearestAtOrBefore(_ context.Context, ts int64) (models.Sample, bool, error) {
	keys := s.sorted()
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] <= ts {
			return models.Sample{Timestamp: keys[i], PriceCents: s.samples[keys[i]]}, true, nil
		}
	}
	return models.Sample{}, false, nil
}

func (s *stubStore) NearestAtOrAfter(_ context.Context, ts int64) (models.Sample, bool, error) {
	for _, k := range s.sorted() {
		if k >= ts {
			return models.Sample{Timestamp: k, PriceCents: s.samples[k]}, true, nil
		}
	}
	return models.Sample{}, false, nil
}

func (s *stubStore) Latest(context.Context) (models.Sample, bool, error) {
	keys := s.sorted()
	if len(keys) == 0 {
		return models.Sample{}, false, nil
	}
	last := keys[len(keys)-1]
	return models.Sample{Timestamp: last, PriceCents: s.samples[last]}, true, nil
}

func (s *stubStore) Health(context.Context) error {
	if s.unhealthy {
		return errors.New("connection refused")
	}
	return nil
}

func (s *stubStore) Close() error { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordSampleIngested(string)   {}
func (stubMetrics) RecordSampleSkipped(string)    {}
func (stubMetrics) RecordError(string)            {}
func (stubMetrics) RecordLastPrice(uint32)        {}
func (stubMetrics) RecordLatency(string, float64) {}
func (stubMetrics) RecordCacheResult(bool)        {}

func newTestServer(t *testing.T, store *stubStore, importDone func() bool) *echo.Echo {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	queries := usecase.NewQueryService(
		usecase.NewRangeQueryEngine(store), nil, stubMetrics{}, log, importDone)

	e := echo.New()
	NewPricesHandler(log, queries, store).RegisterRoutes(e)
	return e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPricesReturnsPoints(t *testing.T) {
	e := newTestServer(t, newStubStore(
		models.Sample{Timestamp: 100, PriceCents: 200},
		models.Sample{Timestamp: 200, PriceCents: 400},
	), nil)

	rec := doGet(e, "/api/prices/100/200")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status int            `json:"status"`
		Data   []models.Point `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []models.Point{{X: 100, Y: 200}, {X: 200, Y: 400}}
	if len(resp.Data) != len(want) {
		t.Fatalf("expected %d points, got %v", len(want), resp.Data)
	}
	for i := range want {
		if resp.Data[i] != want[i] {
			t.Fatalf("point %d: expected %v, got %v", i, want[i], resp.Data[i])
		}
	}
}

func TestPricesAppliesPointsThreshold(t *testing.T) {
	samples := make([]models.Sample, 100)
	for i := range samples {
		samples[i] = models.Sample{Timestamp: int64(i) * models.HourSeconds, PriceCents: uint32(100 + i)}
	}
	e := newTestServer(t, newStubStore(samples...), nil)

	rec := doGet(e, "/api/prices/0/356400?points=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []models.Point `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) > 10 {
		t.Fatalf("expected at most 10 points, got %d", len(resp.Data))
	}
}

func TestPricesInvalidRange(t *testing.T) {
	e := newTestServer(t, newStubStore(models.Sample{Timestamp: 100, PriceCents: 200}), nil)

	rec := doGet(e, "/api/prices/200/100")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPricesNonNumericParams(t *testing.T) {
	e := newTestServer(t, newStubStore(), nil)

	rec := doGet(e, "/api/prices/abc/def")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPricesEmptySeriesNotFound(t *testing.T) {
	e := newTestServer(t, newStubStore(), func() bool { return true })

	rec := doGet(e, "/api/prices/0/3600")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an empty series, got %d", rec.Code)
	}
}

func TestPricesRetryableWhileImporting(t *testing.T) {
	e := newTestServer(t, newStubStore(), func() bool { return false })

	rec := doGet(e, "/api/prices/0/3600")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while the import runs, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderRetryAfter) == "" {
		t.Fatal("503 must carry a Retry-After header")
	}
}

func TestHealthz(t *testing.T) {
	store := newStubStore()
	e := newTestServer(t, store, nil)

	if rec := doGet(e, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	store.unhealthy = true
	if rec := doGet(e, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the store is down, got %d", rec.Code)
	}
}

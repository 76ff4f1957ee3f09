package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	"PriceTrend/pkg/cache"
	"PriceTrend/pkg/logger"
)

// QueryService fronts the range query engine with a memoizing cache and
// converts "no data during first import" into a retryable condition.
//
// Cache policy: the key is the exact (begin, end, maxPoints) triple and
// entries are never invalidated, which is sound because a fully
// historical range is immutable once its samples exist. Ranges whose
// end reaches the current still-open hour are never cached, so queries
// touching "now" cannot return stale points.
type QueryService struct {
	engine     *RangeQueryEngine
	cache      cache.Service
	metrics    repository.Metrics
	log        *logger.Logger
	importDone func() bool
	now        func() time.Time
}

// NewQueryService creates a query service. cache may be nil to disable
// memoization; importDone may be nil when no bulk import is configured.
func NewQueryService(
	engine *RangeQueryEngine,
	c cache.Service,
	metrics repository.Metrics,
	log *logger.Logger,
	importDone func() bool,
) *QueryService {
	return &QueryService{
		engine:     engine,
		cache:      c,
		metrics:    metrics,
		log:        log,
		importDone: importDone,
		now:        time.Now,
	}
}

// Query returns the bounded point sequence for [begin, end].
func (s *QueryService) Query(ctx context.Context, begin, end int64, maxPoints int) ([]models.Point, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordLatency("query", time.Since(start).Seconds())
	}()

	if begin > end {
		return nil, models.ErrInvalidRange
	}
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}

	key := fmt.Sprintf("q:%d:%d:%d", begin, end, maxPoints)
	cacheable := s.cache != nil && end < models.CurrentHour(s.now())

	if cacheable {
		var pts []models.Point
		err := s.cache.Get(ctx, key, &pts)
		if err == nil && len(pts) > 0 {
			s.metrics.RecordCacheResult(true)
			return pts, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			// Cache trouble degrades to a direct query.
			s.log.Warn("query cache get failed", logger.Error(err), logger.String("key", key))
		}
		s.metrics.RecordCacheResult(false)
	}

	pts, err := s.engine.Query(ctx, begin, end, maxPoints)
	if err != nil {
		if errors.Is(err, models.ErrNoData) && s.importDone != nil && !s.importDone() {
			return nil, models.ErrImportRunning
		}
		if !errors.Is(err, models.ErrNoData) && !errors.Is(err, models.ErrInvalidRange) {
			s.metrics.RecordError("query_store")
		}
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, pts, 0); err != nil {
			s.log.Warn("query cache set failed", logger.Error(err), logger.String("key", key))
		}
	}
	return pts, nil
}

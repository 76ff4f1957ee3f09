package poller

import (
	"context"
	"time"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	"PriceTrend/pkg/logger"
)

const source = "poller"

// Poller appends one sample per completed wall-clock hour from the live
// feed. Every tick is independent: a failed fetch or write is logged
// and the next tick starts clean, so feed downtime leaves true gaps in
// the series that the query engine bridges at read time. Writing goes
// through upsert-if-absent, so extra ticks inside the same hour and
// races with the importer are harmless.
type Poller struct {
	store    repository.SeriesStore
	feed     repository.PriceFeed
	pub      repository.Publisher
	metrics  repository.Metrics
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. interval must not be coarser than one hour.
func New(
	store repository.SeriesStore,
	feed repository.PriceFeed,
	pub repository.Publisher,
	metrics repository.Metrics,
	log *logger.Logger,
	interval time.Duration,
) *Poller {
	if interval <= 0 || interval > time.Hour {
		interval = time.Hour
	}
	return &Poller{
		store:    store,
		feed:     feed,
		pub:      pub,
		metrics:  metrics,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the poll loop. The first tick runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Tick(ctx)
			}
		}
	}()
	p.log.Info("poller started", logger.Duration("interval_ms", p.interval))
}

// Stop cancels the loop and waits for the current tick to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.log.Info("poller stopped")
}

// Tick performs one poll iteration. Exported for the app's manual
// trigger and for tests.
func (p *Poller) Tick(ctx context.Context) {
	now := p.now()

	// Freshness guard from the original service: if the newest stored
	// sample is young, skip the remote call entirely rather than lean
	// on the external API.
	latest, ok, err := p.store.Latest(ctx)
	if err != nil {
		p.metrics.RecordError("poll_store")
		p.log.Warn("poller could not check freshness", logger.Error(err))
		return
	}
	if ok && now.Unix()-latest.Timestamp < int64(p.interval.Seconds())/2 {
		p.log.Debug("series is fresh, skipping poll", logger.Int64("latest_ts", latest.Timestamp))
		return
	}

	quote, err := p.feed.Current(ctx)
	if err != nil {
		p.metrics.RecordError("poll_feed")
		p.log.Warn("feed fetch failed, will retry next tick", logger.Error(err))
		return
	}

	// The hour for "now", never a future hour. Missing past hours are
	// left alone: gaps are a query-time concern.
	ts := models.CurrentHour(now)
	if quote.Timestamp > 0 && quote.Timestamp < ts {
		p.log.Debug("feed timestamp lags current hour",
			logger.Int64("feed_ts", quote.Timestamp), logger.Int64("hour", ts))
	}

	inserted, err := p.store.UpsertIfAbsent(ctx, ts, quote.PriceCents)
	if err != nil {
		p.metrics.RecordError("poll_store")
		p.log.Warn("poller failed to store sample", logger.Int64("ts", ts), logger.Error(err))
		return
	}

	p.metrics.RecordLastPrice(quote.PriceCents)
	if !inserted {
		p.metrics.RecordSampleSkipped(source)
		return
	}
	p.metrics.RecordSampleIngested(source)
	p.log.Info("stored hourly sample",
		logger.Int64("ts", ts), logger.Uint32("price_cents", quote.PriceCents))

	if p.pub != nil {
		if err := p.pub.PublishSample(ctx, models.Sample{Timestamp: ts, PriceCents: quote.PriceCents}); err != nil {
			p.metrics.RecordError("poll_publish")
			p.log.Warn("failed to publish sample", logger.Error(err))
		}
	}
}

package importer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	"PriceTrend/pkg/logger"
	"PriceTrend/pkg/util"
)

const source = "import"

// Importer loads the reduced historical file into the series store. It
// runs once at startup and is safe to re-run: rows whose hour already
// exists are skipped by upsert-if-absent, so a restart after a partial
// import just resumes. Malformed rows are logged and skipped; they
// never abort the import.
type Importer struct {
	store   repository.SeriesStore
	metrics repository.Metrics
	log     *logger.Logger
	path    string

	done     chan struct{}
	finished atomic.Bool
}

// New creates an importer for the given history file. An empty path
// disables the import; Finished reports true immediately.
func New(store repository.SeriesStore, metrics repository.Metrics, log *logger.Logger, path string) *Importer {
	imp := &Importer{
		store:   store,
		metrics: metrics,
		log:     log,
		path:    path,
		done:    make(chan struct{}),
	}
	if path == "" {
		imp.markDone()
	}
	return imp
}

// Done is closed once the import has finished (or was disabled).
func (i *Importer) Done() <-chan struct{} {
	return i.done
}

// Finished reports whether the import has completed.
func (i *Importer) Finished() bool {
	return i.finished.Load()
}

// Run reads the history file and populates the store. The first line is
// a header and is always skipped.
func (i *Importer) Run(ctx context.Context) error {
	if i.path == "" {
		return nil
	}
	defer i.markDone()

	f, err := os.Open(i.path)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var (
		imported, skipped, malformed int
		lastTS                       int64 = -1
		lineNum                      int
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lineNum++
		if lineNum == 1 {
			continue // header
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ts, price, ok := parseRow(line)
		if !ok {
			malformed++
			i.metrics.RecordError("import_malformed")
			i.log.Warn("skipping malformed history row",
				logger.Int("line", lineNum), logger.String("row", line))
			continue
		}
		if !models.HourAligned(ts) || ts <= lastTS {
			malformed++
			i.metrics.RecordError("import_malformed")
			i.log.Warn("skipping misaligned or out-of-order history row",
				logger.Int("line", lineNum), logger.Int64("ts", ts))
			continue
		}
		lastTS = ts

		inserted, err := i.store.UpsertIfAbsent(ctx, ts, price)
		if err != nil {
			// Storage trouble on one row should not lose the rest of
			// the file; log and keep going, the next run fills the gap.
			i.metrics.RecordError("import_store")
			i.log.Warn("failed to insert history row",
				logger.Int64("ts", ts), logger.Error(err))
			continue
		}
		if inserted {
			imported++
			i.metrics.RecordSampleIngested(source)
		} else {
			skipped++
			i.metrics.RecordSampleSkipped(source)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read history file: %w", err)
	}

	i.log.Info("historical import finished",
		logger.Int("imported", imported),
		logger.Int("skipped", skipped),
		logger.Int("malformed", malformed),
	)
	return nil
}

// parseRow splits "timestamp,price" where price is a decimal amount in
// major units.
func parseRow(line string) (int64, uint32, bool) {
	sep := strings.IndexByte(line, ',')
	if sep < 0 {
		return 0, 0, false
	}
	ts, ok := util.ParseTimestamp(strings.TrimSpace(line[:sep]))
	if !ok {
		return 0, 0, false
	}
	price, ok := util.ParsePriceCents(strings.TrimSpace(line[sep+1:]))
	if !ok {
		return 0, 0, false
	}
	return ts, price, true
}

func (i *Importer) markDone() {
	if i.finished.CompareAndSwap(false, true) {
		close(i.done)
	}
}

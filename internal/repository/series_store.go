package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
)

// SchemaStatements returns the idempotent DDL for the series table.
// MergeTree ordered by ts keeps range scans proportional to the rows in
// range.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.%s (ts DateTime, price_cents UInt32) ENGINE = MergeTree ORDER BY ts",
			database, table),
	}
}

// ClickHouseSeriesStore implements SeriesStore on a ClickHouse table.
type ClickHouseSeriesStore struct {
	db    *sql.DB
	table string

	// Serializes the exists-then-insert pair in UpsertIfAbsent. The
	// importer and the poller are the only writers and both live in
	// this process, so a process-level mutex is enough to keep the
	// first write winning.
	mu sync.Mutex
}

// NewClickHouseSeriesStore creates a ClickHouse-backed series store.
// table must be the fully qualified "db.table" name.
func NewClickHouseSeriesStore(db *sql.DB, table string) repository.SeriesStore {
	return &ClickHouseSeriesStore{db: db, table: table}
}

func (s *ClickHouseSeriesStore) Get(ctx context.Context, ts int64) (models.Sample, bool, error) {
	q := fmt.Sprintf("SELECT ts, price_cents FROM %s WHERE ts = ? LIMIT 1", s.table)
	return s.queryOne(ctx, q, time.Unix(ts, 0).UTC())
}

func (s *ClickHouseSeriesStore) Scan(ctx context.Context, begin, end int64) ([]models.Sample, error) {
	q := fmt.Sprintf("SELECT ts, price_cents FROM %s WHERE ts >= ? AND ts <= ? ORDER BY ts ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, time.Unix(begin, 0).UTC(), time.Unix(end, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("scan series: %w", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var ts time.Time
		var price uint32
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		samples = append(samples, models.Sample{Timestamp: ts.Unix(), PriceCents: price})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan series: %w", err)
	}
	return samples, nil
}

func (s *ClickHouseSeriesStore) UpsertIfAbsent(ctx context.Context, ts int64, priceCents uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE ts = ?", s.table)
	if err := s.db.QueryRowContext(ctx, q, time.Unix(ts, 0).UTC()).Scan(&count); err != nil {
		return false, fmt.Errorf("check sample exists: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	ins := fmt.Sprintf("INSERT INTO %s (ts, price_cents) VALUES (?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, ins, time.Unix(ts, 0).UTC(), priceCents); err != nil {
		return false, fmt.Errorf("insert sample: %w", err)
	}
	return true, nil
}

func (s *ClickHouseSeriesStore) NearestAtOrBefore(ctx context.Context, ts int64) (models.Sample, bool, error) {
	q := fmt.Sprintf("SELECT ts, price_cents FROM %s WHERE ts <= ? ORDER BY ts DESC LIMIT 1", s.table)
	return s.queryOne(ctx, q, time.Unix(ts, 0).UTC())
}

func (s *ClickHouseSeriesStore) NearestAtOrAfter(ctx context.Context, ts int64) (models.Sample, bool, error) {
	q := fmt.Sprintf("SELECT ts, price_cents FROM %s WHERE ts >= ? ORDER BY ts ASC LIMIT 1", s.table)
	return s.queryOne(ctx, q, time.Unix(ts, 0).UTC())
}

func (s *ClickHouseSeriesStore) Latest(ctx context.Context) (models.Sample, bool, error) {
	q := fmt.Sprintf("SELECT ts, price_cents FROM %s ORDER BY ts DESC LIMIT 1", s.table)
	var t time.Time
	var price uint32
	err := s.db.QueryRowContext(ctx, q).Scan(&t, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sample{}, false, nil
	}
	if err != nil {
		return models.Sample{}, false, fmt.Errorf("latest sample: %w", err)
	}
	return models.Sample{Timestamp: t.Unix(), PriceCents: price}, true, nil
}

func (s *ClickHouseSeriesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSeriesStore) Close() error {
	return nil // connection pool owned by pkg/clickhouse client
}

func (s *ClickHouseSeriesStore) queryOne(ctx context.Context, q string, args ...interface{}) (models.Sample, bool, error) {
	var t time.Time
	var price uint32
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&t, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sample{}, false, nil
	}
	if err != nil {
		return models.Sample{}, false, fmt.Errorf("query sample: %w", err)
	}
	return models.Sample{Timestamp: t.Unix(), PriceCents: price}, true, nil
}

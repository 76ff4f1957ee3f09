package models

import "errors"

var (
	// ErrInvalidRange is returned when a query has begin > end. It is a
	// precondition failure and is raised before any store access.
	ErrInvalidRange = errors.New("invalid range: begin must be <= end")

	// ErrNoData is returned when the series holds no sample usable for
	// the requested range: the series is empty or the range has no
	// neighbor on either side. Distinct from a populated-but-flat
	// result on purpose.
	ErrNoData = errors.New("no data in series for range")

	// ErrImportRunning is returned instead of ErrNoData while the
	// initial bulk import is still populating an empty series. Callers
	// should treat it as retryable.
	ErrImportRunning = errors.New("historical import still running")
)

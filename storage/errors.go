package storage

import "errors"

// Storage error constants
var (
	// ErrHistoryUnavailable is returned when the history backend is
	// disabled or unreachable
	ErrHistoryUnavailable = errors.New("search history storage unavailable")

	// ErrEngineError is returned when the search engine rejects or fails
	// a query
	ErrEngineError = errors.New("search engine error")
)

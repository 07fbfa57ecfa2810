// Package service orchestrates the search flow: cache-aside lookup,
// query compilation, engine execution, result shaping, and best-effort
// history recording.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logscope/core"
	"logscope/metrics"
	"logscope/search"
	"logscope/storage"
	"logscope/util"

	"go.uber.org/zap"
)

// ErrSearchFailed is the only caller-visible failure class: the engine
// could not execute the query. Cache and history failures degrade
// silently and never surface.
var ErrSearchFailed = errors.New("search execution failed")

const minAutocompleteLength = 2

// Executor runs a built query against the search engine.
// Defined here (consumer package) following Interface Segregation Principle.
type Executor interface {
	Execute(ctx context.Context, query *search.BuiltQuery) (*storage.ExecuteResult, error)
}

// Cache is a key/value store with TTL semantics. Implementations must be
// safe for concurrent use; this layer adds no locking.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// HistoryStore persists search history records.
type HistoryStore interface {
	Insert(ctx context.Context, record *core.HistoryRecord) error
}

// SearchService coordinates the cache, query builder, executor, and
// history store. It is stateless per call: two concurrent identical
// requests may both miss and both execute, and the last cache writer
// wins.
type SearchService struct {
	executor        Executor
	cache           Cache
	history         HistoryStore
	searchTTL       time.Duration
	autocompleteTTL time.Duration
	logger          *zap.SugaredLogger
}

// NewSearchService creates a SearchService. All dependencies are
// required; a disabled history backend should be represented by a store
// whose Insert fails, not by nil.
func NewSearchService(
	executor Executor,
	cache Cache,
	history HistoryStore,
	searchTTL time.Duration,
	autocompleteTTL time.Duration,
	logger *zap.SugaredLogger,
) *SearchService {
	if executor == nil {
		panic("executor is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if history == nil {
		panic("history store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &SearchService{
		executor:        executor,
		cache:           cache,
		history:         history,
		searchTTL:       searchTTL,
		autocompleteTTL: autocompleteTTL,
		logger:          logger,
	}
}

// Search executes a log search through the cache-aside flow. Malformed
// parameters degrade to weaker filters and never fail the request; the
// only error returned wraps ErrSearchFailed.
func (s *SearchService) Search(ctx context.Context, params core.SearchParams) (*core.SearchResult, error) {
	canonical := search.Canonicalize(params)
	key := search.CacheKey(canonical)

	// Cache hit: no executor call, no history write. A cache read error
	// is treated as a miss.
	var cached core.SearchResult
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warnw("Cache lookup failed, treating as miss", "error", util.SanitizeError(err))
	}
	if found {
		metrics.SearchesTotal.WithLabelValues("hit").Inc()
		cached.Cached = true
		return &cached, nil
	}

	query := search.NewBuilder(s.logger).
		WithLevel(params.Level).
		WithService(params.Service).
		WithLogType(params.LogType).
		WithDateRange(params.DateFrom, params.DateTo).
		WithFreeText(params.FreeText).
		WithUserFilter(params.UserID).
		WithAmountRange(params.MinAmount, params.MaxAmount).
		WithSort(params.SortField, params.SortOrder).
		WithPagination(params.Page, params.Size).
		Build()

	start := time.Now()
	executed, err := s.executor.Execute(ctx, query)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		s.logger.Errorw("Search execution failed", "error", util.SanitizeError(err))
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues("miss").Inc()

	result := s.shapeResult(canonical, executed)

	if err := s.cache.Set(ctx, key, result, s.searchTTL); err != nil {
		// Caching is an optimization, never a correctness dependency
		s.logger.Warnw("Failed to cache search result", "key", key, "error", util.SanitizeError(err))
	}

	s.recordHistory(ctx, canonical, executed.Total, params.CallerAddress)

	return result, nil
}

// Autocomplete returns up to 10 term suggestions for a partial query.
// Fewer than two characters of sanitized input yield an empty list, and
// engine failures degrade to an empty list as well.
func (s *SearchService) Autocomplete(ctx context.Context, partial string) ([]string, error) {
	text := search.SanitizeFreeText(partial)
	if len(text) < minAutocompleteLength {
		return []string{}, nil
	}

	key := search.AutocompleteCacheKey(text)

	var cached []string
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warnw("Autocomplete cache lookup failed, treating as miss", "error", util.SanitizeError(err))
	}
	if found {
		metrics.AutocompleteTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}

	executed, err := s.executor.Execute(ctx, search.AutocompleteQuery(text))
	if err != nil {
		metrics.AutocompleteTotal.WithLabelValues("error").Inc()
		s.logger.Errorw("Autocomplete execution failed", "error", util.SanitizeError(err))
		return []string{}, nil
	}
	metrics.AutocompleteTotal.WithLabelValues("miss").Inc()

	suggestions := make([]string, 0, len(executed.Aggregations["suggestions"]))
	for _, bucket := range executed.Aggregations["suggestions"] {
		suggestions = append(suggestions, bucket.Key)
	}

	if err := s.cache.Set(ctx, key, suggestions, s.autocompleteTTL); err != nil {
		s.logger.Warnw("Failed to cache suggestions", "key", key, "error", util.SanitizeError(err))
	}

	return suggestions, nil
}

// shapeResult builds the caller-facing result with pagination arithmetic
// and echoes of the applied query, filters, and sort.
func (s *SearchService) shapeResult(canonical core.CanonicalParams, executed *storage.ExecuteResult) *core.SearchResult {
	var totalPages int64
	if canonical.Size > 0 {
		totalPages = (executed.Total + int64(canonical.Size) - 1) / int64(canonical.Size)
	}

	return &core.SearchResult{
		Total:      executed.Total,
		Page:       canonical.Page,
		PageSize:   canonical.Size,
		TotalPages: totalPages,
		Results:    executed.Hits,
		Query:      canonical.FreeText,
		Filters: core.Filters{
			Level:     canonical.Level,
			Service:   canonical.Service,
			LogType:   canonical.LogType,
			DateFrom:  canonical.DateFrom,
			DateTo:    canonical.DateTo,
			UserID:    canonical.UserID,
			MinAmount: canonical.MinAmount,
			MaxAmount: canonical.MaxAmount,
		},
		Sort: core.Sort{
			Field: canonical.SortField,
			Order: canonical.SortOrder,
		},
		Cached:   false,
		CachedAt: time.Now().UTC(),
	}
}

// recordHistory writes one append-only history record per executed
// search. Failures are logged and swallowed; the response never depends
// on the history backend.
func (s *SearchService) recordHistory(ctx context.Context, canonical core.CanonicalParams, total int64, callerAddress string) {
	record := &core.HistoryRecord{
		Timestamp:     time.Now().UTC(),
		Params:        canonical,
		ResultsCount:  total,
		CallerAddress: callerAddress,
	}

	if err := s.history.Insert(ctx, record); err != nil {
		metrics.HistoryWriteFailures.Inc()
		s.logger.Warnw("Failed to record search history", "error", util.SanitizeError(err))
	}
}

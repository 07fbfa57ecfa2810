package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"logscope/core"
	"logscope/search"
	"logscope/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, query *search.BuiltQuery) (*storage.ExecuteResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ExecuteResult), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Insert(ctx context.Context, record *core.HistoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newTestService(t *testing.T, executor Executor, cache Cache, history HistoryStore) *SearchService {
	t.Helper()
	return NewSearchService(executor, cache, history, 60*time.Second, time.Hour, zaptest.NewLogger(t).Sugar())
}

func executeResult(total int64, hits ...core.Hit) *storage.ExecuteResult {
	return &storage.ExecuteResult{Total: total, Hits: hits}
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_CacheMissExecutesAndRecordsHistory(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(executeResult(95, core.Hit{ID: "log-1", Score: 1.2}), nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, 60*time.Second).Return(nil)
	history.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Search(context.Background(), core.SearchParams{
		FreeText:      "timeout",
		Level:         "error",
		Page:          "1",
		Size:          "10",
		CallerAddress: "203.0.113.7",
	})
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, int64(95), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, int64(10), result.TotalPages)
	assert.Equal(t, "timeout", result.Query)
	assert.Equal(t, "ERROR", result.Filters.Level)
	assert.Equal(t, core.Sort{Field: "@timestamp", Order: "desc"}, result.Sort)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "log-1", result.Results[0].ID)

	executor.AssertNumberOfCalls(t, "Execute", 1)
	history.AssertNumberOfCalls(t, "Insert", 1)

	rec := history.Calls[0].Arguments.Get(1).(*core.HistoryRecord)
	assert.Equal(t, int64(95), rec.ResultsCount)
	assert.Equal(t, "203.0.113.7", rec.CallerAddress)
	assert.Equal(t, "ERROR", rec.Params.Level)
}

func TestSearch_CacheHitSkipsExecutorAndHistory(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	stored := core.SearchResult{Total: 7, Page: 1, PageSize: 20, Query: "timeout"}
	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*core.SearchResult) = stored
		}).
		Return(true, nil)

	result, err := svc.Search(context.Background(), core.SearchParams{FreeText: "timeout"})
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, int64(7), result.Total)
	executor.AssertNotCalled(t, "Execute")
	history.AssertNotCalled(t, "Insert")
	cache.AssertNotCalled(t, "Set")
}

func TestSearch_ExecutorFailurePropagatesTyped(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(nil, errors.New("engine timeout"))

	result, err := svc.Search(context.Background(), core.SearchParams{FreeText: "x y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Nil(t, result, "no partial result on execution failure")

	cache.AssertNotCalled(t, "Set")
	history.AssertNotCalled(t, "Insert")
}

func TestSearch_CacheGetFailureDegradesToMiss(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).
		Return(false, errors.New("redis unreachable"))
	executor.On("Execute", mock.Anything, mock.Anything).Return(executeResult(1), nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("redis unreachable"))
	history.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Search(context.Background(), core.SearchParams{FreeText: "test"})
	require.NoError(t, err, "cache failure must never fail the request")
	assert.Equal(t, int64(1), result.Total)
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestSearch_HistoryFailureSwallowed(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	executor.On("Execute", mock.Anything, mock.Anything).Return(executeResult(3), nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	history.On("Insert", mock.Anything, mock.Anything).
		Return(errors.New("mongo down"))

	result, err := svc.Search(context.Background(), core.SearchParams{FreeText: "test"})
	require.NoError(t, err, "history failure must never surface")
	assert.Equal(t, int64(3), result.Total)
}

func TestSearch_TotalPagesArithmetic(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		size       string
		wantPages  int64
		wantOffset int
	}{
		{"exact multiple", 100, "10", 10, 0},
		{"rounds up", 101, "10", 11, 0},
		{"fewer than one page", 3, "10", 1, 0},
		{"zero results", 0, "10", 0, 0},
		{"size clamped up from zero", 5, "0", 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := new(MockExecutor)
			cache := new(MockCache)
			history := new(MockHistoryStore)
			svc := newTestService(t, executor, cache, history)

			cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
			executor.On("Execute", mock.Anything, mock.Anything).Return(executeResult(tt.total), nil)
			cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			history.On("Insert", mock.Anything, mock.Anything).Return(nil)

			result, err := svc.Search(context.Background(), core.SearchParams{Size: tt.size})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, result.TotalPages)
		})
	}
}

// Cache round-trip and expiry against a real Redis-protocol backend.
func TestSearch_CacheRoundTripWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	logger := zaptest.NewLogger(t).Sugar()
	redisCache := core.NewRedisCache(mr.Addr(), "", 0, 10, logger)
	defer redisCache.Close()

	executor := new(MockExecutor)
	history := new(MockHistoryStore)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(executeResult(12, core.Hit{ID: "log-9", Score: 3.1}), nil)
	history.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewSearchService(executor, redisCache, history, 60*time.Second, time.Hour, logger)
	params := core.SearchParams{FreeText: "timeout", Level: "ERROR", Size: "10"}

	first, err := svc.Search(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Search(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Results, second.Results)
	executor.AssertNumberOfCalls(t, "Execute", 1)
	history.AssertNumberOfCalls(t, "Insert", 1)

	// After the TTL the entry expires and the next call misses again
	mr.FastForward(61 * time.Second)

	third, err := svc.Search(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	executor.AssertNumberOfCalls(t, "Execute", 2)
	history.AssertNumberOfCalls(t, "Insert", 2)
}

func TestSearch_EquivalentParamsShareCacheEntry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	logger := zaptest.NewLogger(t).Sugar()
	redisCache := core.NewRedisCache(mr.Addr(), "", 0, 10, logger)
	defer redisCache.Close()

	executor := new(MockExecutor)
	history := new(MockHistoryStore)
	executor.On("Execute", mock.Anything, mock.Anything).Return(executeResult(5), nil)
	history.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewSearchService(executor, redisCache, history, 60*time.Second, time.Hour, logger)

	_, err = svc.Search(context.Background(), core.SearchParams{FreeText: "test", Page: "1", Size: "20"})
	require.NoError(t, err)

	// Omitted page/size default to the same canonical request
	second, err := svc.Search(context.Background(), core.SearchParams{FreeText: "test"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

// ============================================================================
// Autocomplete
// ============================================================================

func TestAutocomplete_RequiresTwoCharacters(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	for _, partial := range []string{"", "a", "<>!", "  x  "} {
		suggestions, err := svc.Autocomplete(context.Background(), partial)
		require.NoError(t, err)
		assert.Empty(t, suggestions, "partial %q", partial)
	}
	executor.AssertNotCalled(t, "Execute")
	cache.AssertNotCalled(t, "Get")
}

func TestAutocomplete_MissExecutesAndCaches(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, "autocomplete:pay", mock.Anything).Return(false, nil)
	executor.On("Execute", mock.Anything, mock.Anything).Return(&storage.ExecuteResult{
		Total: 0,
		Aggregations: map[string][]storage.Bucket{
			"suggestions": {
				{Key: "payment failed", DocCount: 40},
				{Key: "payment timeout", DocCount: 12},
			},
		},
	}, nil)
	cache.On("Set", mock.Anything, "autocomplete:pay", mock.Anything, time.Hour).Return(nil)

	suggestions, err := svc.Autocomplete(context.Background(), "Pay")
	require.NoError(t, err)
	assert.Equal(t, []string{"payment failed", "payment timeout"}, suggestions)

	history.AssertNotCalled(t, "Insert")
	cache.AssertCalled(t, "Set", mock.Anything, "autocomplete:pay", mock.Anything, time.Hour)
}

func TestAutocomplete_HitSkipsExecutor(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, "autocomplete:pay", mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*[]string) = []string{"payment failed"}
		}).
		Return(true, nil)

	suggestions, err := svc.Autocomplete(context.Background(), "pay")
	require.NoError(t, err)
	assert.Equal(t, []string{"payment failed"}, suggestions)
	executor.AssertNotCalled(t, "Execute")
}

func TestAutocomplete_EngineFailureDegradesToEmpty(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	svc := newTestService(t, executor, cache, history)

	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(nil, errors.New("engine down"))

	suggestions, err := svc.Autocomplete(context.Background(), "payment")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	cache.AssertNotCalled(t, "Set")
}

// ============================================================================
// Constructor
// ============================================================================

func TestNewSearchService_PanicsOnNilDependencies(t *testing.T) {
	executor := new(MockExecutor)
	cache := new(MockCache)
	history := new(MockHistoryStore)
	logger := zaptest.NewLogger(t).Sugar()

	assert.Panics(t, func() {
		NewSearchService(nil, cache, history, time.Minute, time.Hour, logger)
	})
	assert.Panics(t, func() {
		NewSearchService(executor, nil, history, time.Minute, time.Hour, logger)
	})
	assert.Panics(t, func() {
		NewSearchService(executor, cache, nil, time.Minute, time.Hour, logger)
	})
	assert.Panics(t, func() {
		NewSearchService(executor, cache, history, time.Minute, time.Hour, nil)
	})
}

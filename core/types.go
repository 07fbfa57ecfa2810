// Package core defines the domain types shared across logscope and the
// Redis cache used by the search flow.
package core

import "time"

// SearchParams carries the raw, untrusted inputs of a search request.
// Every field arrives as a string straight from the transport layer;
// sanitization happens downstream and never rejects a request.
type SearchParams struct {
	FreeText      string `json:"q,omitempty"`
	Level         string `json:"level,omitempty"`
	Service       string `json:"service,omitempty"`
	LogType       string `json:"log_type,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	MinAmount     string `json:"min_amount,omitempty"`
	MaxAmount     string `json:"max_amount,omitempty"`
	Page          string `json:"page,omitempty"`
	Size          string `json:"size,omitempty"`
	SortField     string `json:"sort_field,omitempty"`
	SortOrder     string `json:"sort_order,omitempty"`
	CallerAddress string `json:"-"`
}

// CanonicalParams is the sanitized, default-filled form of a request.
// String fields are empty when the filter is absent; amount bounds are
// nil when absent. Two requests with equal CanonicalParams are the same
// logical search and share a cache entry.
type CanonicalParams struct {
	FreeText  string   `json:"q,omitempty" bson:"q,omitempty"`
	Level     string   `json:"level,omitempty" bson:"level,omitempty"`
	Service   string   `json:"service,omitempty" bson:"service,omitempty"`
	LogType   string   `json:"log_type,omitempty" bson:"log_type,omitempty"`
	DateFrom  string   `json:"date_from,omitempty" bson:"date_from,omitempty"`
	DateTo    string   `json:"date_to,omitempty" bson:"date_to,omitempty"`
	UserID    string   `json:"user_id,omitempty" bson:"user_id,omitempty"`
	MinAmount *float64 `json:"min_amount,omitempty" bson:"min_amount,omitempty"`
	MaxAmount *float64 `json:"max_amount,omitempty" bson:"max_amount,omitempty"`
	Page      int      `json:"page" bson:"page"`
	Size      int      `json:"size" bson:"size"`
	SortField string   `json:"sort_field" bson:"sort_field"`
	SortOrder string   `json:"sort_order" bson:"sort_order"`
}

// Hit is a single search result document.
type Hit struct {
	ID        string                 `json:"id"`
	Score     float64                `json:"score"`
	Source    map[string]interface{} `json:"source"`
	Highlight map[string][]string    `json:"highlight,omitempty"`
}

// Filters echoes the filter values that were actually applied after
// sanitization, so callers can see what their request degraded to.
type Filters struct {
	Level     string   `json:"level,omitempty"`
	Service   string   `json:"service,omitempty"`
	LogType   string   `json:"log_type,omitempty"`
	DateFrom  string   `json:"date_from,omitempty"`
	DateTo    string   `json:"date_to,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	MinAmount *float64 `json:"min_amount,omitempty"`
	MaxAmount *float64 `json:"max_amount,omitempty"`
}

// Sort echoes the sort that was applied.
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// SearchResult is the shaped response of a search, and the value stored
// in the cache. Cached and CachedAt describe the cache lifecycle: a
// result is created on a miss and served with Cached=true on later hits
// until the TTL expires.
type SearchResult struct {
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int64     `json:"total_pages"`
	Results    []Hit     `json:"results"`
	Query      string    `json:"query"`
	Filters    Filters   `json:"filters"`
	Sort       Sort      `json:"sort"`
	Cached     bool      `json:"cached"`
	CachedAt   time.Time `json:"cached_at"`
}

// HistoryRecord is an append-only snapshot of one executed search.
// Exactly one record is written per cache-miss execution, never on a hit.
type HistoryRecord struct {
	ID            string          `json:"id" bson:"_id"`
	Timestamp     time.Time       `json:"timestamp" bson:"timestamp"`
	Params        CanonicalParams `json:"params" bson:"params"`
	ResultsCount  int64           `json:"results_count" bson:"results_count"`
	CallerAddress string          `json:"caller_address,omitempty" bson:"caller_address,omitempty"`
}

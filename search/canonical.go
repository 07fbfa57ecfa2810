package search

import (
	"fmt"
	"strconv"
	"strings"

	"logscope/core"

	"github.com/cespare/xxhash/v2"
)

// Canonicalize applies every sanitizer once and fills defaults, producing
// the canonical form of a request. Cache keys are derived from this
// post-default record, so an omitted page/size and an explicit default
// are the same logical request everywhere.
func Canonicalize(params core.SearchParams) core.CanonicalParams {
	c := core.CanonicalParams{
		FreeText:  SanitizeFreeText(params.FreeText),
		Page:      SanitizePage(params.Page),
		Size:      SanitizeSize(params.Size),
		SortField: SanitizeSortField(params.SortField),
		SortOrder: SanitizeSortOrder(params.SortOrder),
	}

	if level, ok := SanitizeLevel(params.Level); ok {
		c.Level = level
	}
	if service, ok := SanitizeTerm(params.Service, MaxServiceLength); ok {
		c.Service = service
	}
	if logType, ok := SanitizeTerm(params.LogType, MaxLogTypeLength); ok {
		c.LogType = logType
	}
	if from, ok := SanitizeDate(params.DateFrom); ok {
		c.DateFrom = from
	}
	if to, ok := SanitizeDate(params.DateTo); ok {
		c.DateTo = to
	}
	if userID, ok := SanitizeTerm(params.UserID, MaxUserIDLength); ok {
		c.UserID = userID
	}
	if min, ok := SanitizeAmount(params.MinAmount); ok {
		c.MinAmount = &min
	}
	if max, ok := SanitizeAmount(params.MaxAmount); ok {
		c.MaxAmount = &max
	}

	return c
}

// CacheKey derives the deterministic cache key for a canonical request:
// absent fields are dropped, the remaining pairs are serialized in fixed
// lexicographic key order, and the result is digested with xxhash64.
// Equal canonical requests always map to the same key.
func CacheKey(c core.CanonicalParams) string {
	pairs := make([]string, 0, 13)

	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, key+"="+value)
		}
	}

	// Keys appended in lexicographic order
	add("date_from", c.DateFrom)
	add("date_to", c.DateTo)
	add("level", c.Level)
	add("log_type", c.LogType)
	if c.MaxAmount != nil {
		add("max_amount", strconv.FormatFloat(*c.MaxAmount, 'f', -1, 64))
	}
	if c.MinAmount != nil {
		add("min_amount", strconv.FormatFloat(*c.MinAmount, 'f', -1, 64))
	}
	add("page", strconv.Itoa(c.Page))
	add("q", c.FreeText)
	add("service", c.Service)
	add("size", strconv.Itoa(c.Size))
	add("sort_field", c.SortField)
	add("sort_order", c.SortOrder)
	add("user_id", c.UserID)

	digest := xxhash.Sum64String(strings.Join(pairs, "&"))
	return core.CacheKeySearchPrefix + fmt.Sprintf("%016x", digest)
}

// AutocompleteCacheKey keys suggestion lookups by the lowercased
// sanitized text alone.
func AutocompleteCacheKey(text string) string {
	return core.CacheKeyAutocompletePrefix + strings.ToLower(text)
}

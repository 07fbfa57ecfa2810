package search

import (
	"strconv"

	"logscope/metrics"

	"go.uber.org/zap"
)

// freeTextFields are the fields a free-text search runs over, with
// relevance boosts on the message fields.
var freeTextFields = []string{
	"message^3",
	"error_message^2",
	"endpoint",
	"service",
	"action",
	"product_id",
}

// autocompleteFields are the fields a phrase-prefix suggestion query
// runs over.
var autocompleteFields = []string{
	"message",
	"error_message",
	"user_id",
	"transaction_id",
}

const (
	highlightPreTag  = "<mark>"
	highlightPostTag = "</mark>"

	// aggregation bucket cap
	termsAggSize = 10
)

// Clause is a single leaf of the query tree in engine DSL form.
type Clause map[string]interface{}

// SortSpec is the single (field, order) pair applied to a query.
type SortSpec struct {
	Field string
	Order string
}

// HighlightSpec requests match highlighting on the given fields.
type HighlightSpec struct {
	Fields  []string
	PreTag  string
	PostTag string
}

// Aggregation is a terms aggregation over one field.
type Aggregation struct {
	Field string
	Size  int
}

// BuiltQuery is the structured, engine-agnostic representation of a
// compiled search request. It is an in-memory value handed to the
// executor; Body renders it to the engine DSL.
type BuiltQuery struct {
	Must         []Clause
	Filter       []Clause
	Should       []Clause
	MustNot      []Clause
	Sort         SortSpec
	From         int
	Size         int
	Highlight    *HighlightSpec
	Aggregations map[string]Aggregation
}

// Body renders the query to the engine DSL. Empty boolean buckets are
// omitted from the emitted structure.
func (q *BuiltQuery) Body() map[string]interface{} {
	boolQuery := map[string]interface{}{}
	if len(q.Must) > 0 {
		boolQuery["must"] = clauseList(q.Must)
	}
	if len(q.Filter) > 0 {
		boolQuery["filter"] = clauseList(q.Filter)
	}
	if len(q.Should) > 0 {
		boolQuery["should"] = clauseList(q.Should)
	}
	if len(q.MustNot) > 0 {
		boolQuery["must_not"] = clauseList(q.MustNot)
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{q.Sort.Field: map[string]interface{}{"order": q.Sort.Order}},
		},
		"from": q.From,
		"size": q.Size,
	}

	if q.Highlight != nil {
		fields := map[string]interface{}{}
		for _, f := range q.Highlight.Fields {
			fields[f] = map[string]interface{}{}
		}
		body["highlight"] = map[string]interface{}{
			"fields":    fields,
			"pre_tags":  []string{q.Highlight.PreTag},
			"post_tags": []string{q.Highlight.PostTag},
		}
	}

	if len(q.Aggregations) > 0 {
		aggs := map[string]interface{}{}
		for name, agg := range q.Aggregations {
			aggs[name] = map[string]interface{}{
				"terms": map[string]interface{}{
					"field": agg.Field,
					"size":  agg.Size,
				},
			}
		}
		body["aggs"] = aggs
	}

	return body
}

func clauseList(clauses []Clause) []interface{} {
	out := make([]interface{}, len(clauses))
	for i, c := range clauses {
		out[i] = map[string]interface{}(c)
	}
	return out
}

func matchAll() Clause {
	return Clause{"match_all": map[string]interface{}{}}
}

// Builder assembles a BuiltQuery from sanitized filters, free text,
// pagination, and sort. Each setter is a no-op on missing or invalid
// input. A builder is scoped to a single request; it is not safe for
// concurrent use and must not be shared.
type Builder struct {
	must         []Clause
	filter       []Clause
	highlight    *HighlightSpec
	aggregations map[string]Aggregation
	sort         SortSpec
	page         int
	size         int
	logger       *zap.SugaredLogger
}

// NewBuilder creates a builder in its initial state: no clauses,
// timestamp-descending sort, first page at the default size.
func NewBuilder(logger *zap.SugaredLogger) *Builder {
	b := &Builder{logger: logger}
	return b.Reset()
}

// Reset returns the builder to its initial state.
func (b *Builder) Reset() *Builder {
	b.must = nil
	b.filter = nil
	b.highlight = nil
	b.aggregations = nil
	b.sort = SortSpec{Field: "@timestamp", Order: "desc"}
	b.page = DefaultPage
	b.size = DefaultSize
	return b
}

// WithLevel adds an exact log-level filter. Levels outside the fixed
// enum are dropped.
func (b *Builder) WithLevel(raw string) *Builder {
	if raw == "" {
		return b
	}
	level, ok := SanitizeLevel(raw)
	if !ok {
		b.dropped("level", raw)
		return b
	}
	b.filter = append(b.filter, Clause{"term": map[string]interface{}{"level.keyword": level}})
	b.logger.Debugw("Added level filter", "level", level)
	return b
}

// WithService adds an exact service-name filter.
func (b *Builder) WithService(raw string) *Builder {
	if raw == "" {
		return b
	}
	service, ok := SanitizeTerm(raw, MaxServiceLength)
	if !ok {
		b.dropped("service", raw)
		return b
	}
	b.filter = append(b.filter, Clause{"term": map[string]interface{}{"service.keyword": service}})
	b.logger.Debugw("Added service filter", "service", service)
	return b
}

// WithLogType adds an exact log-type filter.
func (b *Builder) WithLogType(raw string) *Builder {
	if raw == "" {
		return b
	}
	logType, ok := SanitizeTerm(raw, MaxLogTypeLength)
	if !ok {
		b.dropped("log_type", raw)
		return b
	}
	b.filter = append(b.filter, Clause{"term": map[string]interface{}{"log_type.keyword": logType}})
	b.logger.Debugw("Added log_type filter", "log_type", logType)
	return b
}

// WithDateRange adds a timestamp range filter. Each bound is
// independently droppable; the clause is emitted only if at least one
// bound parses.
func (b *Builder) WithDateRange(rawFrom, rawTo string) *Builder {
	bounds := map[string]interface{}{}
	if rawFrom != "" {
		if from, ok := SanitizeDate(rawFrom); ok {
			bounds["gte"] = from
		} else {
			b.dropped("date_from", rawFrom)
		}
	}
	if rawTo != "" {
		if to, ok := SanitizeDate(rawTo); ok {
			bounds["lte"] = to
		} else {
			b.dropped("date_to", rawTo)
		}
	}
	if len(bounds) == 0 {
		return b
	}
	b.filter = append(b.filter, Clause{"range": map[string]interface{}{"@timestamp": bounds}})
	return b
}

// WithFreeText adds a relevance-scored multi-field fuzzy clause and a
// highlight spec. Text that is absent or empty after sanitization
// degrades to a match-all clause so filter-only searches still produce
// a valid ranked query.
func (b *Builder) WithFreeText(raw string) *Builder {
	text := SanitizeFreeText(raw)
	if text == "" {
		if raw != "" {
			b.dropped("q", raw)
		}
		b.must = append(b.must, matchAll())
		return b
	}

	b.must = append(b.must, Clause{
		"multi_match": map[string]interface{}{
			"query":                text,
			"fields":               freeTextFields,
			"type":                 "best_fields",
			"fuzziness":            "AUTO",
			"operator":             "or",
			"minimum_should_match": "75%",
		},
	})
	b.highlight = &HighlightSpec{
		Fields:  []string{"message", "error_message"},
		PreTag:  highlightPreTag,
		PostTag: highlightPostTag,
	}
	b.logger.Debugw("Added free text search", "text", text)
	return b
}

// WithUserFilter adds an exact user filter. Numeric IDs match the
// numeric field, everything else the keyword field.
func (b *Builder) WithUserFilter(raw string) *Builder {
	if raw == "" {
		return b
	}
	userID, ok := SanitizeTerm(raw, MaxUserIDLength)
	if !ok {
		b.dropped("user_id", raw)
		return b
	}
	if n, err := strconv.ParseInt(userID, 10, 64); err == nil {
		b.filter = append(b.filter, Clause{"term": map[string]interface{}{"user_id": n}})
	} else {
		b.filter = append(b.filter, Clause{"term": map[string]interface{}{"user_id.keyword": userID}})
	}
	b.logger.Debugw("Added user filter", "user_id", userID)
	return b
}

// WithAmountRange adds an amount range filter. Negative or malformed
// bounds are treated as absent; the clause is emitted only if at least
// one bound survives.
func (b *Builder) WithAmountRange(rawMin, rawMax string) *Builder {
	bounds := map[string]interface{}{}
	if rawMin != "" {
		if min, ok := SanitizeAmount(rawMin); ok {
			bounds["gte"] = min
		} else {
			b.dropped("min_amount", rawMin)
		}
	}
	if rawMax != "" {
		if max, ok := SanitizeAmount(rawMax); ok {
			bounds["lte"] = max
		} else {
			b.dropped("max_amount", rawMax)
		}
	}
	if len(bounds) == 0 {
		return b
	}
	b.filter = append(b.filter, Clause{"range": map[string]interface{}{"amount": bounds}})
	return b
}

// WithSort sets the single sort pair. Fields outside the allow-list are
// silently replaced by timestamp-descending.
func (b *Builder) WithSort(rawField, rawOrder string) *Builder {
	b.sort = SortSpec{
		Field: SanitizeSortField(rawField),
		Order: SanitizeSortOrder(rawOrder),
	}
	return b
}

// WithPagination sets page and size with defaults and clamps applied.
func (b *Builder) WithPagination(rawPage, rawSize string) *Builder {
	b.page = SanitizePage(rawPage)
	b.size = SanitizeSize(rawSize)
	return b
}

// WithAggregations adds a capped terms aggregation per field. Field
// names are sanitized; empty results are skipped.
func (b *Builder) WithAggregations(fields []string) *Builder {
	for _, raw := range fields {
		field, ok := SanitizeTerm(raw, MaxFieldLength)
		if !ok {
			b.dropped("aggregation", raw)
			continue
		}
		if b.aggregations == nil {
			b.aggregations = map[string]Aggregation{}
		}
		b.aggregations[field+"_agg"] = Aggregation{Field: field + ".keyword", Size: termsAggSize}
	}
	return b
}

// Build compiles the accumulated state into a BuiltQuery. It is
// idempotent: repeated calls without intervening setters return
// structurally equal queries. If no free-text clause was added, a
// match-all clause is injected so the must bucket is never empty.
func (b *Builder) Build() *BuiltQuery {
	must := make([]Clause, len(b.must))
	copy(must, b.must)
	if len(must) == 0 {
		must = append(must, matchAll())
	}

	filter := make([]Clause, len(b.filter))
	copy(filter, b.filter)

	var aggs map[string]Aggregation
	if len(b.aggregations) > 0 {
		aggs = make(map[string]Aggregation, len(b.aggregations))
		for name, agg := range b.aggregations {
			aggs[name] = agg
		}
	}

	var highlight *HighlightSpec
	if b.highlight != nil {
		h := *b.highlight
		highlight = &h
	}

	return &BuiltQuery{
		Must:         must,
		Filter:       filter,
		Sort:         b.sort,
		From:         (b.page - 1) * b.size,
		Size:         b.size,
		Highlight:    highlight,
		Aggregations: aggs,
	}
}

// AutocompleteQuery builds the fixed phrase-prefix suggestion query:
// no hits requested, a single terms aggregation capped at 10 buckets.
func AutocompleteQuery(text string) *BuiltQuery {
	return &BuiltQuery{
		Must: []Clause{{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": autocompleteFields,
				"type":   "phrase_prefix",
			},
		}},
		Sort: SortSpec{Field: "@timestamp", Order: "desc"},
		From: 0,
		Size: 0,
		Aggregations: map[string]Aggregation{
			"suggestions": {Field: "message.keyword", Size: termsAggSize},
		},
	}
}

func (b *Builder) dropped(field, raw string) {
	metrics.InputDegradations.WithLabelValues(field).Inc()
	b.logger.Warnw("Dropped invalid search parameter", "field", field, "value_length", len(raw))
}

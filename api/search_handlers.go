package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"logscope/core"
	"logscope/service"
)

const defaultHistoryLimit = 10

// AutocompleteResponse wraps the suggestion list.
type AutocompleteResponse struct {
	Suggestions []string `json:"suggestions"`
}

// HistoryResponse wraps recent history records.
type HistoryResponse struct {
	History []core.HistoryRecord `json:"history"`
	Count   int                  `json:"count"`
}

// search handles GET /api/v1/search. Query parameters are passed through
// raw; the service layer sanitizes them and degrades malformed values to
// weaker filters, so the only failure mode here is engine execution.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := core.SearchParams{
		FreeText:      q.Get("q"),
		Level:         q.Get("level"),
		Service:       q.Get("service"),
		LogType:       q.Get("log_type"),
		DateFrom:      q.Get("date_from"),
		DateTo:        q.Get("date_to"),
		UserID:        q.Get("user_id"),
		MinAmount:     q.Get("min_amount"),
		MaxAmount:     q.Get("max_amount"),
		Page:          q.Get("page"),
		Size:          q.Get("size"),
		SortField:     q.Get("sort_field"),
		SortOrder:     q.Get("sort_order"),
		CallerAddress: getClientIP(r),
	}

	result, err := a.searcher.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrSearchFailed) {
			writeError(w, http.StatusInternalServerError, "Search execution failed", err, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error", err, a.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, a.logger)
}

// autocomplete handles GET /api/v1/search/autocomplete
func (a *API) autocomplete(w http.ResponseWriter, r *http.Request) {
	suggestions, err := a.searcher.Autocomplete(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Autocomplete failed", err, a.logger)
		return
	}

	writeJSON(w, http.StatusOK, AutocompleteResponse{Suggestions: suggestions}, a.logger)
}

// searchHistory handles GET /api/v1/search/history
func (a *API) searchHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := a.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Search history not available", err, a.logger)
		return
	}
	if records == nil {
		records = []core.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{History: records, Count: len(records)}, a.logger)
}

// healthCheck handles GET /health
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response, a.logger)
}

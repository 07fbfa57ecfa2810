// Package api exposes the HTTP surface of logscope: log search,
// autocomplete, search history, health, and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"logscope/config"
	"logscope/core"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Searcher executes searches and autocomplete lookups.
type Searcher interface {
	Search(ctx context.Context, params core.SearchParams) (*core.SearchResult, error)
	Autocomplete(ctx context.Context, partial string) ([]string, error)
}

// HistoryReader reads recent search history records.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]core.HistoryRecord, error)
}

// API holds the HTTP server and its dependencies.
type API struct {
	router   *mux.Router
	server   *http.Server
	searcher Searcher
	history  HistoryReader
	config   *config.Config
	logger   *zap.SugaredLogger
}

// NewAPI creates the API server and registers all routes.
func NewAPI(searcher Searcher, history HistoryReader, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:   mux.NewRouter(),
		searcher: searcher,
		history:  history,
		config:   cfg,
		logger:   logger,
	}
	a.setupRoutes()
	return a
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.loggingMiddleware)
	a.router.HandleFunc("/api/v1/search", a.search).Methods("GET")
	a.router.HandleFunc("/api/v1/search/autocomplete", a.autocomplete).Methods("GET")
	a.router.HandleFunc("/api/v1/search/history", a.searchHistory).Methods("GET")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// loggingMiddleware logs one line per request
func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debugw("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", getClientIP(r),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.API.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.API.WriteTimeout) * time.Second,
	}
	return a.server.ListenAndServe()
}

// Stop gracefully stops the API server
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

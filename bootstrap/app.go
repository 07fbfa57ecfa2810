// Package bootstrap wires configuration, storage backends, the search
// service, and the HTTP API into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logscope/api"
	"logscope/config"
	"logscope/core"
	"logscope/service"
	"logscope/storage"

	"go.uber.org/zap"
)

// App represents the logscope application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Cache          *core.RedisCache
	Mongo          *storage.MongoDB
	HistoryStorage *storage.HistoryStorage
	Engine         *storage.Elasticsearch

	SearchService *service.SearchService
	APIServer     *api.API
}

// NewApp creates a new application instance and initializes all
// components. The cache and the search engine are required; MongoDB is
// optional and history recording degrades to a no-op when it is
// disabled or unreachable.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("logscope starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// Redis cache. A failed ping is logged but not fatal: the service
	// treats every cache failure as a miss.
	app.Cache = core.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)
	if err := app.Cache.Ping(ctx); err != nil {
		sugar.Warnw("Redis unreachable at startup, caching degraded", "addr", cfg.Redis.Addr, "error", err)
	} else {
		sugar.Info("Connected to Redis successfully")
	}

	// MongoDB history backend, optional.
	if cfg.MongoDB.Enabled {
		mongo, err := storage.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize, sugar)
		if err != nil {
			sugar.Warnw("MongoDB unavailable, search history disabled", "error", err)
			app.HistoryStorage = storage.NewHistoryStorage(nil, sugar)
		} else {
			app.Mongo = mongo
			app.HistoryStorage = storage.NewHistoryStorage(mongo.Database, sugar)
		}
	} else {
		sugar.Info("MongoDB disabled, search history will not be recorded")
		app.HistoryStorage = storage.NewHistoryStorage(nil, sugar)
	}

	// Elasticsearch is the system of record for searches; without it
	// there is nothing to serve.
	engine, err := storage.NewElasticsearch(
		cfg.Elasticsearch.Addresses,
		cfg.Elasticsearch.Index,
		time.Duration(cfg.Elasticsearch.Timeout)*time.Second,
		sugar,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch: %w", err)
	}
	app.Engine = engine

	app.SearchService = service.NewSearchService(
		engine,
		app.Cache,
		app.HistoryStorage,
		cfg.Cache.SearchTTL,
		cfg.Cache.AutocompleteTTL,
		sugar,
	)

	app.APIServer = api.NewAPI(app.SearchService, app.HistoryStorage, cfg, sugar)

	return app, nil
}

// Start launches the API server in the background.
func (a *App) Start() error {
	addr := fmt.Sprintf("%s:%d", a.Config.API.Host, a.Config.API.Port)
	a.Sugar.Infow("API server starting", "addr", addr)

	go func() {
		if err := a.APIServer.Start(addr); err != nil && err != http.ErrServerClosed {
			a.Sugar.Fatalw("API server failed", "error", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.APIServer != nil {
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Errorw("Failed to close Redis connection", "error", err)
		}
	}

	if a.Mongo != nil {
		if err := a.Mongo.Close(ctx); err != nil {
			a.Sugar.Errorw("Failed to close MongoDB connection", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}

// Package app wires configuration, databases, cache and services into the
// record service shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/internal/service"
	"github.com/noah-isme/sma-records/pkg/cache"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/database"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Records *service.RecordService

	sources map[database.Source]*sqlx.DB
	redis   *redis.Client
}

// New connects both record databases and, when enabled, Redis.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sources, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// listings still work uncached
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	a, err := Assemble(cfg, logger, sources, redisClient)
	if err != nil {
		_ = database.Close(sources)
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	return a, nil
}

// Assemble builds the services over already opened connections.
func Assemble(cfg *config.Config, logger *zap.Logger, sources map[database.Source]*sqlx.DB, redisClient *redis.Client) (*App, error) {
	catalog, err := service.DefaultCatalog(sources)
	if err != nil {
		return nil, fmt.Errorf("build record catalog: %w", err)
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logger)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Records.CacheTTL, logger, redisClient != nil)
	records := service.NewRecordService(catalog, cacheSvc, metrics, validator.New(), logger, cfg.Records)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Records: records,
		sources: sources,
		redis:   redisClient,
	}, nil
}

// HealthChecks returns one probe per connected dependency.
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error, len(a.sources)+1)
	for name, db := range a.sources {
		db := db
		checks[string(name)] = db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases database and cache connections.
func (a *App) Close() error {
	err := database.Close(a.sources)
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

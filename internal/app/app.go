// Package app wires the configured components together for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/perse/carbon-dashboard/internal/cache"
	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/perse/carbon-dashboard/internal/labrador"
	"github.com/perse/carbon-dashboard/internal/pkg/distlock"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
	"github.com/perse/carbon-dashboard/internal/report"
	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/perse/carbon-dashboard/internal/storage"
	"github.com/perse/carbon-dashboard/internal/teams"
	"github.com/redis/go-redis/v9"
)

// reportLockKey guards scheduled generation across replicas.
const reportLockKey = "daily-report"

// App holds the long-lived components.
type App struct {
	Config    *config.Config
	Redis     *redis.Client
	DB        *sql.DB
	Collector *labrador.Collector
	Assembler *stats.Assembler
	Generator *report.Generator
	Scheduler *report.Scheduler
}

// ConfigureLogging applies the logging section to the default logger.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.Redact())
}

// New builds every component. Redis and PostgreSQL are optional: without
// Redis there is no snapshot cache, without PostgreSQL runs are kept in
// memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg}

	if cfg.Cache.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		a.Redis = client
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			a.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		a.DB = db
	}

	cal, err := cfg.Aggregation.Calendar()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Assembler = stats.NewAssembler(cal, cfg.Aggregation.Filter(), teams.NewResolver(cfg.Teams),
		stats.WithShards(cfg.Aggregation.Shards))

	var snapshots labrador.SnapshotStore
	if a.Redis != nil {
		snapshots = cache.NewSnapshotCache(a.Redis, cfg.Cache.SnapshotTTL())
	}
	a.Collector = labrador.NewCollector(labrador.NewClient(cfg.Labrador), snapshots, cfg.Polling)

	archive, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	var runs report.RunStore = report.NewMemoryRunStore()
	if a.DB != nil {
		runs = report.NewPostgresRunStore(a.DB)
	}
	a.Generator = report.NewGenerator(a.Collector, a.Assembler, archive, runs, cfg.Storage.Prefix)

	lock := distlock.NewLock(a.Redis, a.DB, reportLockKey, cfg.Report.LockTTL())
	a.Scheduler = report.NewScheduler(a.Generator, lock, cfg.Report.ScheduleHour(), cfg.Report.Recipients)

	logger.Info("components initialized",
		"component", "app",
		"redis", a.Redis != nil,
		"postgres", a.DB != nil,
		"storage", cfg.Storage.Type,
		"teams", len(cfg.Teams),
	)
	return a, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

package labrador

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// ErrNoSnapshot is returned by Records before any data has been fetched or
// loaded from the cache.
var ErrNoSnapshot = errors.New("labrador: no site snapshot available")

// SiteFetcher defines the upstream operation needed by the collector
type SiteFetcher interface {
	FetchAllSites(ctx context.Context) ([]domain.SiteRecord, error)
}

// SnapshotStore defines the cache operations needed by the collector
type SnapshotStore interface {
	Save(ctx context.Context, records []domain.SiteRecord, at time.Time) error
	Load(ctx context.Context) ([]domain.SiteRecord, time.Time, error)
}

// Collector polls the site-activity API and keeps the latest snapshot.
type Collector struct {
	fetcher SiteFetcher
	store   SnapshotStore
	config  config.PollingConfig
	now     func() time.Time
	log     *logger.Logger

	mu        sync.RWMutex
	records   []domain.SiteRecord
	lastFetch time.Time
	lastErr   error
	isRunning bool
}

// NewCollector creates a new collector. store may be nil.
func NewCollector(fetcher SiteFetcher, store SnapshotStore, cfg config.PollingConfig) *Collector {
	return &Collector{
		fetcher: fetcher,
		store:   store,
		config:  cfg,
		now:     time.Now,
		log:     logger.With("component", "collector"),
	}
}

// Start begins the polling loop and blocks until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.isRunning = true
	c.mu.Unlock()

	c.log.Info("starting site collector", "interval", c.config.Interval().String())

	c.Refresh(ctx)

	ticker := time.NewTicker(c.config.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("stopping site collector")
			c.mu.Lock()
			c.isRunning = false
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh fetches every site once. A failed fetch keeps the previous
// snapshot and is reported through the returned error.
func (c *Collector) Refresh(ctx context.Context) error {
	start := c.now()
	records, err := c.fetcher.FetchAllSites(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		c.log.Error("site fetch failed", "error", err.Error())
		return err
	}

	at := c.now()
	c.mu.Lock()
	c.records = records
	c.lastFetch = at
	c.lastErr = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, records, at); err != nil {
			c.log.Warn("snapshot cache write failed", "error", err.Error())
		}
	}

	c.log.Info("site fetch completed", "sites", len(records), "duration", at.Sub(start).String())
	return nil
}

// Records returns the in-memory snapshot, falling back to the cache.
func (c *Collector) Records(ctx context.Context) ([]domain.SiteRecord, time.Time, error) {
	c.mu.RLock()
	records, at := c.records, c.lastFetch
	c.mu.RUnlock()
	if records != nil {
		return records, at, nil
	}

	if c.store == nil {
		return nil, time.Time{}, ErrNoSnapshot
	}
	records, at, err := c.store.Load(ctx)
	if err != nil {
		c.log.Debug("snapshot cache unavailable", "error", err.Error())
		return nil, time.Time{}, ErrNoSnapshot
	}

	c.mu.Lock()
	if c.records == nil {
		c.records, c.lastFetch = records, at
	}
	c.mu.Unlock()
	return records, at, nil
}

// Status describes the collector for health checks.
type Status struct {
	Running   bool      `json:"running"`
	Sites     int       `json:"sites"`
	LastFetch time.Time `json:"lastFetch"`
	LastError string    `json:"lastError,omitempty"`
}

// Status reports the collector state.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Running:   c.isRunning,
		Sites:     len(c.records),
		LastFetch: c.lastFetch,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

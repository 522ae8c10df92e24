package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/labrador"
	"github.com/perse/carbon-dashboard/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Labrador: config.LabradorConfig{BaseURL: "http://127.0.0.1:1", PageLimit: 10, TimeoutSeconds: 1},
		Polling:  config.PollingConfig{IntervalSeconds: 60},
		Aggregation: config.AggregationConfig{
			OrgDomain: "edf.com",
			WeekStart: "monday",
			Timezone:  "Europe/London",
			Shards:    2,
		},
		Cache:   config.CacheConfig{SnapshotTTLMinutes: 5},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir(), Prefix: "reports"},
		Report:  config.ReportConfig{LockTTLMinutes: 5},
	}
}

func TestNew_WithoutBackends(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.DB)
	assert.NotNil(t, a.Scheduler)
	assert.IsType(t, &report.MemoryRunStore{}, a.Generator.Runs())
	assert.Equal(t, "Europe/London", a.Assembler.Calendar().Location().String())

	_, _, err = a.Collector.Records(context.Background())
	assert.ErrorIs(t, err, labrador.ErrNoSnapshot)
}

func TestNew_WithRedisSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	// A snapshot written by another replica is served from the cache.
	mr.Set("carbon:sites:snapshot", `[{"agent_name":"ann.agent@edf.com","site_status":"ACTIVE"}]`)
	mr.Set("carbon:sites:fetched_at", time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC).Format(time.RFC3339Nano))

	records, at, err := a.Collector.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2025, at.Year())
	assert.IsType(t, []domain.SiteRecord{}, records)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Cache.RedisURL = "redis://127.0.0.1:1"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

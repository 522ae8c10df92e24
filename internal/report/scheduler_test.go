package report

import (
	"context"
	"testing"
	"time"

	"github.com/perse/carbon-dashboard/internal/pkg/distlock"
	"github.com/perse/carbon-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, lock distlock.DistLock) (*Scheduler, *MemoryRunStore) {
	t.Helper()
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	runs := NewMemoryRunStore()
	gen := NewGenerator(&fakeSource{records: testRecords()}, testAssembler(testNow), archive, runs, "reports")
	s := NewScheduler(gen, lock, 7, []string{"ops@example.com"})
	s.now = func() time.Time { return testNow }
	return s, runs
}

func TestScheduler_NextRun(t *testing.T) {
	s, _ := newTestScheduler(t, distlock.NewLocalLock())

	// 09:30 is past 07:00, so the next run is tomorrow.
	assert.Equal(t, time.Date(2025, 3, 13, 7, 0, 0, 0, time.UTC), s.NextRun(testNow))
	assert.Equal(t, time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC),
		s.NextRun(time.Date(2025, 3, 12, 6, 59, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 3, 13, 7, 0, 0, 0, time.UTC),
		s.NextRun(time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC)))
	// Month rollover.
	assert.Equal(t, time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC),
		s.NextRun(time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC)))
}

func TestScheduler_RunOnce(t *testing.T) {
	s, runs := newTestScheduler(t, distlock.NewLocalLock())
	ctx := context.Background()

	run, err := s.RunOnce(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusArchived, run.Status)

	// A second firing on the same day is skipped.
	run, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	list, err := runs.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	lock := distlock.NewLocalLock()
	s, runs := newTestScheduler(t, lock)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	run, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	list, err := runs.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScheduler_RetriesAfterFailedRun(t *testing.T) {
	s, runs := newTestScheduler(t, distlock.NewLocalLock())
	ctx := context.Background()
	require.NoError(t, runs.Create(ctx, &Run{ID: "failed", GeneratedAt: testNow, Status: StatusFailed}))

	run, err := s.RunOnce(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusArchived, run.Status)
}

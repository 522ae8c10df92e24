package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "daily-report", time.Minute)
	b := NewRedisLock(client, "daily-report", time.Minute)
	assert.Equal(t, "carbon:lock:daily-report", a.Key())

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner cannot release someone else's lock.
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists(a.Key()))

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists(a.Key()))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_TTLExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "k", 10*time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	b := NewRedisLock(client, "k", 10*time.Second)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Error(t, a.Extend(ctx, time.Minute))
}

func TestRedisLock_Extend(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "k", 10*time.Second)
	_, err := a.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Extend(ctx, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(a.Key()))
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lock := NewPGAdvisoryLock(db, "daily-report")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Release(context.Background()))
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_Busy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "daily-report")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_DeterministicID(t *testing.T) {
	a := NewPGAdvisoryLock(nil, "daily-report")
	b := NewPGAdvisoryLock(nil, "daily-report")
	c := NewPGAdvisoryLock(nil, "other")
	assert.Equal(t, a.lockID, b.lockID)
	assert.NotEqual(t, a.lockID, c.lockID)
}

func TestRun(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	ran := false
	err := Run(ctx, lock, func(ctx context.Context) error {
		ran = true
		// The lock is held while fn runs.
		err := Run(ctx, lock, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrNotAcquired)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	boom := errors.New("boom")
	assert.ErrorIs(t, Run(ctx, lock, func(context.Context) error { return boom }), boom)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock is released after Run")
}

func TestNewLock_Backends(t *testing.T) {
	_, client := newTestRedis(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.IsType(t, &RedisLock{}, NewLock(client, db, "k", time.Minute))
	assert.IsType(t, &PGAdvisoryLock{}, NewLock(nil, db, "k", time.Minute))
	assert.IsType(t, &LocalLock{}, NewLock(nil, nil, "k", time.Minute))
}

// Package distlock guards work that must run on only one replica, such as
// the scheduled daily report.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by Run when another holder owns the lock.
var ErrNotAcquired = errors.New("distlock: lock held elsewhere")

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock without blocking.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a distributed lock using the best available backend:
// Redis when redisClient is set, PostgreSQL advisory locks when only db is
// set, and a process-local lock otherwise.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return NewLocalLock()
	}
}

// Run acquires lock, runs fn and releases the lock. It returns
// ErrNotAcquired without running fn when the lock is taken.
func Run(ctx context.Context, lock DistLock, fn func(context.Context) error) error {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		// Release on a fresh context so a cancelled run still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		lock.Release(releaseCtx)
	}()
	return fn(ctx)
}

// PGAdvisoryLock implements DistLock using session-scoped PostgreSQL
// advisory locks. The lock lives on one pooled connection, which is held
// until Release; a dropped connection releases the lock.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a deterministic lock ID from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries pg_try_advisory_lock on a dedicated connection.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, errors.New("distlock: advisory lock already held by this instance")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("getting connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the connection that acquired the lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// LocalLock is an in-process lock for single-replica deployments without
// Redis or PostgreSQL.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// NewLocalLock returns an unlocked LocalLock.
func NewLocalLock() *LocalLock { return &LocalLock{} }

// Acquire takes the lock if it is free.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Release frees the lock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
	return nil
}

// Package distlock provides the single-flight guard for campaign sends.
//
// A campaign must have exactly one in-flight send: the repository's
// draft→sending status transition is the authoritative check, and the
// lock here fences the window between reading the campaign and winning
// that transition when multiple server instances share a database.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// ForSend creates the single-flight lock for one campaign send using the
// best available backend. If redisClient is non-nil, uses Redis
// (preferred for cross-host locking). Otherwise falls back to PostgreSQL
// advisory locks. With neither configured it degrades to a process-local
// no-op; the repository status transition still guards correctness.
func ForSend(redisClient *redis.Client, db *sql.DB, campaignID string, ttl time.Duration) DistLock {
	key := "campaign-send:" + campaignID
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return noopLock{}
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
// The lock is session-scoped and automatically released if the DB
// connection drops, providing crash-safety similar to Redis TTL expiry.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock. Returns true if successful.
// Uses pg_try_advisory_lock which returns immediately (non-blocking).
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release releases the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

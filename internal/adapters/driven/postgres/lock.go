package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock backs DistributedLock with pg advisory locks when Redis is
// not configured. Advisory locks are connection-scoped rather than
// TTL-based: the ttl arguments are ignored, Extend is a no-op, and a lost
// connection drops the lock.
type AdvisoryLock struct {
	db *DB
}

func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// lockID maps the lock name onto the int64 key space advisory locks use.
func lockID(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("quarry:lock:" + name))
	return int64(h.Sum64())
}

// Acquire is non-blocking: pg_try_advisory_lock returns false immediately
// when another connection holds the lock.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID(name)).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release unlocks. A false result means the lock was not held, which is
// not an error.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockID(name)).Scan(&released)
}

// Extend is a no-op; advisory locks have no TTL to renew.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates singleton work across instances, such as the
// scheduler's polling loop. Locks are named and carry a TTL so a crashed
// holder cannot wedge the system.
type DistributedLock interface {
	// Acquire attempts to take a named lock for the given TTL. It returns
	// false without error when another instance already holds the lock.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up a named lock. Best-effort: the TTL expires it anyway,
	// and releasing a lock that is not held is not an error.
	Release(ctx context.Context, name string) error

	// Extend renews the TTL of a lock held by this instance. Backends
	// without TTL semantics (PostgreSQL advisory locks) return nil.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks that the lock backend is reachable.
	Ping(ctx context.Context) error
}

// Package distlock serializes work across server and worker processes.
package distlock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// DistLock is a non-blocking mutual-exclusion lock. One instance guards one
// critical section; create a new instance per acquisition.
type DistLock interface {
	// Acquire tries to take the lock and reports whether it succeeded.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// Expiring is implemented by locks that lapse unless extended.
type Expiring interface {
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) error
}

// KeepAlive extends an Expiring lock every third of its TTL until stop is
// called. Other locks are held until released, so nothing runs for them.
// Extension failures are passed to onErr; after ErrLockLost it stops trying.
func KeepAlive(ctx context.Context, lock DistLock, onErr func(error)) (stop func()) {
	exp, ok := lock.(Expiring)
	if !ok || exp.TTL() <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(exp.TTL() / 3)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				err := exp.Extend(ctx, exp.TTL())
				if err == nil || ctx.Err() != nil {
					continue
				}
				if onErr != nil {
					onErr(err)
				}
				if errors.Is(err, ErrLockLost) {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Factory creates a lock for key.
type Factory func(key string) DistLock

// NewFactory prefers Redis (cross-host, TTL-bounded) and falls back to
// PostgreSQL advisory locks when no Redis client is given.
func NewFactory(redisClient *redis.Client, pool *pgxpool.Pool, ttl time.Duration) Factory {
	return func(key string) DistLock {
		if redisClient != nil {
			return NewRedisLock(redisClient, key, ttl)
		}
		return NewPGAdvisoryLock(pool, key)
	}
}

// PGAdvisoryLock holds pg_try_advisory_lock on a dedicated pooled connection.
// Advisory locks are session scoped, so the connection is kept until Release.
type PGAdvisoryLock struct {
	pool   *pgxpool.Pool
	lockID int64

	mu   sync.Mutex
	conn *pgxpool.Conn
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(pool *pgxpool.Pool, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{pool: pool, lockID: int64(h.Sum64())}
}

// Acquire tries the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, fmt.Errorf("advisory lock %d already held by this instance", l.lockID)
	}
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks and returns the connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()
	_, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

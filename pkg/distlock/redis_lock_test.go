package distlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "broadcast:email", time.Minute)
	second := NewRedisLock(client, "broadcast:email", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held lock")

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_KeysAreIndependent(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	ok, err := NewRedisLock(client, "broadcast:email", time.Minute).Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = NewRedisLock(client, "broadcast:whatsapp", time.Minute).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ReleaseDoesNotStealForeignLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	stale := NewRedisLock(client, "broadcast:email", time.Second)
	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	fresh := NewRedisLock(client, "broadcast:email", time.Minute)
	ok, err = fresh.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(fresh.Key()), "stale owner released a lock it no longer holds")
}

func TestRedisLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "broadcast:email", time.Second)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Extend(ctx, time.Minute))
	mr.FastForward(5 * time.Second)
	assert.True(t, mr.Exists(l.Key()))
}

func TestNewFactory_PrefersRedis(t *testing.T) {
	_, client := setupTestRedis(t)
	lock := NewFactory(client, nil, time.Minute)("broadcast:email")
	_, isRedis := lock.(*RedisLock)
	assert.True(t, isRedis)
}

func TestRedisLock_ExtendAfterExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "broadcast:email", time.Second)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, l.Extend(ctx, time.Minute), ErrLockLost)
}

type expiringLock struct {
	ttl     time.Duration
	err     error
	extends atomic.Int32
}

func (l *expiringLock) Acquire(context.Context) (bool, error) { return true, nil }
func (l *expiringLock) Release(context.Context) error         { return nil }
func (l *expiringLock) TTL() time.Duration                    { return l.ttl }

func (l *expiringLock) Extend(context.Context, time.Duration) error {
	l.extends.Add(1)
	return l.err
}

func TestKeepAlive_ExtendsUntilStopped(t *testing.T) {
	l := &expiringLock{ttl: 30 * time.Millisecond}
	stop := KeepAlive(context.Background(), l, nil)
	assert.Eventually(t, func() bool { return l.extends.Load() >= 2 }, time.Second, 5*time.Millisecond)

	stop()
	n := l.extends.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, l.extends.Load())
}

func TestKeepAlive_StopsWhenLockLost(t *testing.T) {
	l := &expiringLock{ttl: 15 * time.Millisecond, err: ErrLockLost}
	var (
		mu   sync.Mutex
		errs []error
	)
	stop := KeepAlive(context.Background(), l, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})
	defer stop()

	assert.Eventually(t, func() bool { return l.extends.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), l.extends.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrLockLost))
}

func TestKeepAlive_RedisLockStaysHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "broadcast:whatsapp", 60*time.Millisecond)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	stop := KeepAlive(ctx, l, nil)
	defer stop()
	// miniredis only expires keys on FastForward; each extension resets the TTL.
	mr.FastForward(50 * time.Millisecond)
	assert.Eventually(t, func() bool { return mr.TTL(l.Key()) > 30*time.Millisecond }, time.Second, 5*time.Millisecond)
	assert.True(t, mr.Exists(l.Key()))
}

func TestKeepAlive_NonExpiringLockIsNoop(t *testing.T) {
	stop := KeepAlive(context.Background(), &PGAdvisoryLock{}, nil)
	stop()
}

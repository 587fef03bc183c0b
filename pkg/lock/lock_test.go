package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"seeker-engine/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewRedisLocker(rdb, node, ttl), mr, rdb
}

// exerciseExclusive starts many callers on one key while the first holder
// blocks; exactly one must run.
func exerciseExclusive(t *testing.T, l Locker) {
	t.Helper()

	const callers = 16
	var (
		ran     atomic.Int32
		wg      sync.WaitGroup
		entered = make(chan struct{})
		hold    = make(chan struct{})
	)

	action := func(ctx context.Context) error {
		if ran.Add(1) == 1 {
			close(entered)
		}
		<-hold
		return nil
	}

	type attempt struct {
		ran bool
		err error
	}
	results := make(chan attempt, callers)
	try := func() {
		defer wg.Done()
		ok, err := l.TryLockAndRun(context.Background(), "LAUNCHED_EVENT:1", action)
		results <- attempt{ran: ok, err: err}
	}

	wg.Add(1)
	go try()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go try()
	}

	// Losers return immediately even while the holder is still inside.
	for i := 1; i < callers; i++ {
		a := <-results
		require.NoError(t, a.err)
		require.False(t, a.ran)
	}
	close(hold)
	wg.Wait()
	a := <-results
	require.NoError(t, a.err)
	require.True(t, a.ran)
	require.Equal(t, int32(1), ran.Load())
}

func exerciseRelease(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()
	boom := errors.New("boom")

	ran, err := l.TryLockAndRun(ctx, "DUEL:1", func(ctx context.Context) error { return boom })
	require.True(t, ran)
	require.ErrorIs(t, err, boom)

	ran, err = l.TryLockAndRun(ctx, "DUEL:1", func(ctx context.Context) error { return nil })
	require.True(t, ran)
	require.NoError(t, err)

	require.PanicsWithValue(t, "kaboom", func() {
		_, _ = l.TryLockAndRun(ctx, "DUEL:1", func(ctx context.Context) error { panic("kaboom") })
	})

	ran, err = l.TryLockAndRun(ctx, "DUEL:1", func(ctx context.Context) error { return nil })
	require.True(t, ran)
	require.NoError(t, err)
}

func exerciseReentrantSkip(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	ran, err := l.TryLockAndRun(ctx, "DUEL:2", func(ctx context.Context) error {
		inner, err := l.TryLockAndRun(ctx, "DUEL:2", func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		require.False(t, inner)

		other, err := l.TryLockAndRun(ctx, "LAUNCHED_EVENT:2", func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		require.True(t, other)
		return nil
	})
	require.True(t, ran)
	require.NoError(t, err)
}

func TestMemoryLocker(t *testing.T) {
	t.Run("exclusive", func(t *testing.T) { exerciseExclusive(t, NewMemoryLocker()) })
	t.Run("release", func(t *testing.T) { exerciseRelease(t, NewMemoryLocker()) })
	t.Run("reentrant", func(t *testing.T) { exerciseReentrantSkip(t, NewMemoryLocker()) })

	l := NewMemoryLocker()
	_, _ = l.TryLockAndRun(context.Background(), "k", func(ctx context.Context) error {
		require.True(t, l.Held("k"))
		return nil
	})
	require.False(t, l.Held("k"))
}

func TestRedisLocker(t *testing.T) {
	t.Run("exclusive", func(t *testing.T) {
		l, _, _ := newRedisLocker(t, time.Minute)
		exerciseExclusive(t, l)
	})
	t.Run("release", func(t *testing.T) {
		l, mr, _ := newRedisLocker(t, time.Minute)
		exerciseRelease(t, l)
		require.False(t, mr.Exists("DUEL:1"))
	})
	t.Run("reentrant", func(t *testing.T) {
		l, _, _ := newRedisLocker(t, time.Minute)
		exerciseReentrantSkip(t, l)
	})
}

func TestRedisLockerKeepsForeignToken(t *testing.T) {
	l, mr, _ := newRedisLocker(t, time.Second)
	ctx := context.Background()

	ran, err := l.TryLockAndRun(ctx, "DUEL:9", func(ctx context.Context) error {
		// The key expires mid-action and another owner takes it.
		mr.FastForward(2 * time.Second)
		require.NoError(t, mr.Set("DUEL:9", "someone-else"))
		return nil
	})
	require.True(t, ran)
	require.NoError(t, err)

	got, err := mr.Get("DUEL:9")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedisLockerSetsTTL(t *testing.T) {
	l, mr, _ := newRedisLocker(t, 30*time.Second)

	_, err := l.TryLockAndRun(context.Background(), "DUEL:3", func(ctx context.Context) error {
		require.Equal(t, 30*time.Second, mr.TTL("DUEL:3"))
		return nil
	})
	require.NoError(t, err)
}

func TestRedisLockerBackendError(t *testing.T) {
	l, mr, _ := newRedisLocker(t, time.Minute)
	mr.Close()

	ran, err := l.TryLockAndRun(context.Background(), "DUEL:4", func(ctx context.Context) error {
		t.Fatal("action must not run")
		return nil
	})
	require.False(t, ran)
	require.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Lock.Backend = "memory"
	l, err := New(Params{Config: cfg, Node: node})
	require.NoError(t, err)
	require.IsType(t, &MemoryLocker{}, l)

	cfg.Lock.Backend = "redis"
	_, err = New(Params{Config: cfg, Node: node})
	require.Error(t, err)

	cfg.Lock.Backend = "etcd"
	_, err = New(Params{Config: cfg, Node: node})
	require.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg.Lock.Backend = "redis"
	l, err = New(Params{Config: cfg, Node: node, Redis: rdb})
	require.NoError(t, err)
	require.IsType(t, &RedisLocker{}, l)
}

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only when it still carries our token, so a
// lock that expired and was taken by another owner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares keys across processes. The TTL bounds how long a key
// outlives a crashed owner.
type RedisLocker struct {
	rdb  redis.UniversalClient
	node *snowflake.Node
	ttl  time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, node *snowflake.Node, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, node: node, ttl: ttl}
}

func (l *RedisLocker) TryLockAndRun(ctx context.Context, key string, action Action) (bool, error) {
	token := l.node.Generate().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	defer l.release(ctx, key, token)

	return true, action(ctx)
}

func (l *RedisLocker) release(ctx context.Context, key, token string) {
	ctx = context.WithoutCancel(ctx)
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		zap.L().Error("[Lock] failed to release lock", zap.String("key", key), zap.Error(err))
		return
	}
	if deleted == 0 {
		zap.L().Warn("[Lock] lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
	}
}

// Package lock provides a keyed try-lock. A held key is reported back to the
// caller instead of being waited on.
package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seeker-engine/pkg/config"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Action runs while the key is held.
type Action func(ctx context.Context) error

type Locker interface {
	// TryLockAndRun runs action only if key could be acquired right away.
	// ran reports whether action was executed; err is the action's error or
	// a backend failure. The key is released on every exit path, including
	// a panic inside action, which is re-raised after release.
	TryLockAndRun(ctx context.Context, key string, action Action) (ran bool, err error)
}

var Module = fx.Module("lock",
	fx.Provide(New),
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	defaultTTL = 5 * time.Minute
)

type Params struct {
	fx.In
	Config *config.Config
	Node   *snowflake.Node
	Redis  *redis.Client `optional:"true"`
}

func New(p Params) (Locker, error) {
	backend := strings.ToLower(p.Config.Lock.Backend)
	switch backend {
	case BackendMemory:
		zap.L().Info("[Lock] using in-process lock backend")
		return NewMemoryLocker(), nil
	case "", BackendRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("lock backend %q requires a redis client", BackendRedis)
		}
		ttl := p.Config.Lock.TTL
		if ttl <= 0 {
			ttl = defaultTTL
		}
		zap.L().Info("[Lock] using redis lock backend", zap.Duration("ttl", ttl))
		return NewRedisLocker(p.Redis, p.Node, ttl), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", p.Config.Lock.Backend)
	}
}

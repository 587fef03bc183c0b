package redis

import (
	"context"
	"time"

	"seeker-engine/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

const (
	pingRetries   = 5
	pingRetryWait = 3 * time.Second
)

func New(lc fx.Lifecycle, c *config.Config) *redis.Client {
	zapLog := zap.L().With(
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
		zap.Duration("pool_timeout", c.Redis.PoolTimeout),
	)

	rdb := redis.NewClient(Options(c))

	if err := waitReady(context.Background(), rdb, pingRetries, pingRetryWait); err != nil {
		zapLog.Error("[Redis] Redis still unreachable, continuing without it", zap.Error(err))
	} else {
		zapLog.Info("[Redis] Connected to Redis")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb
}

func Options(c *config.Config) *redis.Options {
	return &redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	}
}

// waitReady pings until the server answers or the retries run out.
func waitReady(ctx context.Context, rdb *redis.Client, retries int, wait time.Duration) error {
	var err error
	for i := 0; i < retries; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			return nil
		}
		zap.L().Warn("[Redis] Redis not ready, retrying...", zap.Int("retry", i+1), zap.Error(err))
		if i < retries-1 {
			time.Sleep(wait)
		}
	}
	return err
}

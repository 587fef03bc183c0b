package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/db"
	"seeker-engine/pkg/lock"
	"seeker-engine/pkg/logger"
	"seeker-engine/pkg/otelcol"
	"seeker-engine/pkg/random"
	"seeker-engine/pkg/redis"
	"seeker-engine/pkg/task"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"
	"seeker-engine/services/expiry"
	"seeker-engine/services/notify"
	"seeker-engine/services/personage"
)

// The worker delivers notifications and, with SCHEDULER.MODE=asynq, runs the
// expiry ticks enqueued by the engine's periodic scheduler.
func main() {
	opts := []fx.Option{
		config.Select(),
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		otelcol.Module,
		lock.Module,
		random.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		personage.Module,
		duel.Module,
		event.Module,
		notify.Module,
		notify.Worker,
		expiry.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})

func provideSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

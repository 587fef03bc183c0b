package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/db"
	"seeker-engine/pkg/health"
	"seeker-engine/pkg/lock"
	"seeker-engine/pkg/logger"
	"seeker-engine/pkg/otelcol"
	"seeker-engine/pkg/random"
	"seeker-engine/pkg/redis"
	"seeker-engine/pkg/server"
	"seeker-engine/pkg/task"
	"seeker-engine/services/bootstrap"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"
	"seeker-engine/services/expiry"
	"seeker-engine/services/notify"
	"seeker-engine/services/personage"
)

func main() {
	opts := []fx.Option{
		config.Select(),
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		otelcol.Module,
		lock.Module,
		random.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		bootstrap.Module,
		personage.Module,
		duel.Module,
		event.Module,
		notify.Module,
		expiry.Module,
		health.Module,
		server.ProvideHTTPServer,
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

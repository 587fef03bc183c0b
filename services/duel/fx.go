package duel

import "go.uber.org/fx"

var Module = fx.Module("duel.service",
	fx.Provide(NewService),
)

package personage

import "go.uber.org/fx"

var Module = fx.Module("personage.service",
	fx.Provide(NewService),
)

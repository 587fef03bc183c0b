package event

import "go.uber.org/fx"

var Module = fx.Module("event.service",
	fx.Provide(
		NewLaunchedEventService,
		NewRaidService,
		NewPersonalQuestService,
		NewProcessing,
		NewStopper,
	),
)

package notify

import (
	"seeker-engine/services/duel"
	"seeker-engine/services/event"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Module provides the engine-side notifier for both lifecycles.
var Module = fx.Module("notify",
	fx.Provide(
		New,
		func(n Notifier) duel.Notifier { return n },
		func(n Notifier) event.Notifier { return n },
	),
)

// Worker registers the delivery handlers on the asynq server mux.
var Worker = fx.Module("notify.worker",
	fx.Provide(NewLogSender, NewHandler),
	fx.Invoke(func(h *Handler, mux *asynq.ServeMux) { h.Register(mux) }),
)

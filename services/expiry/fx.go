package expiry

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Module runs the expiry scheduler inside the engine process, either as an
// in-process ticker or as an asynq periodic task depending on SCHEDULER.MODE.
var Module = fx.Module("expiry",
	fx.Provide(ProvideMetrics, NewScheduler),
	fx.Invoke(registerTicker),
)

// Worker handles expiry:tick tasks enqueued by the asynq scheduler.
var Worker = fx.Module("expiry.worker",
	fx.Provide(ProvideMetrics, NewScheduler, NewTickHandler),
	fx.Invoke(func(h *TickHandler, mux *asynq.ServeMux) { h.Register(mux) }),
)

package expiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/task"
	"seeker-engine/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ModeTicker = "ticker"
	ModeAsynq  = "asynq"

	defaultPeriod = time.Minute
)

// Ticker drives Tick from an in-process loop.
type Ticker struct {
	scheduler *Scheduler
	period    time.Duration
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTicker(s *Scheduler, period time.Duration) *Ticker {
	if period <= 0 {
		period = defaultPeriod
	}
	return &Ticker{
		scheduler: s,
		period:    period,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (t *Ticker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx)
}

func (t *Ticker) Stop(ctx context.Context) error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run ticks once per period. A slow tick delays the next one instead of
// overlapping it.
func (t *Ticker) run(ctx context.Context) {
	defer close(t.done)
	zap.L().Info("[Expiry] ticker started", zap.Duration("period", t.period))

	for {
		select {
		case <-time.After(t.period):
			t.scheduler.Tick(ctx, t.now())
		case <-ctx.Done():
			zap.L().Warn("[Expiry] ticker stopped")
			return
		}
	}
}

// ValidateCron accepts the standard five field layout and @every/@hourly
// descriptors.
func ValidateCron(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("empty cron spec")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// NewTickTask builds the periodic task enqueued by the asynq scheduler.
func NewTickTask() *asynq.Task {
	return asynq.NewTask(taskname.ExpiryTick, nil,
		asynq.Queue(taskname.QueueCritical),
		asynq.MaxRetry(0),
		asynq.Unique(30*time.Second),
	)
}

// TickHandler runs Tick for every expiry:tick task a worker receives.
type TickHandler struct {
	scheduler *Scheduler
	now       func() time.Time
}

func NewTickHandler(s *Scheduler) *TickHandler {
	return &TickHandler{
		scheduler: s,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleTickTask never fails the task: per entity failures are retried by
// the next tick, not by asynq.
func (h *TickHandler) HandleTickTask(ctx context.Context, t *asynq.Task) error {
	rep := h.scheduler.Tick(ctx, h.now())
	zap.L().Debug("[Expiry] tick task handled",
		zap.String("task_type", t.Type()),
		zap.Any("failed", rep.Failed),
	)
	return nil
}

func (h *TickHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.ExpiryTick, h.HandleTickTask)
}

func registerTicker(lc fx.Lifecycle, cfg *config.Config, s *Scheduler) error {
	mode := strings.ToLower(cfg.Scheduler.Mode)
	switch mode {
	case "", ModeTicker:
		t := NewTicker(s, cfg.Scheduler.Period)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				t.Start()
				return nil
			},
			OnStop: t.Stop,
		})
		return nil
	case ModeAsynq:
		return registerCron(lc, cfg)
	default:
		return fmt.Errorf("unknown scheduler mode %q", cfg.Scheduler.Mode)
	}
}

func registerCron(lc fx.Lifecycle, cfg *config.Config) error {
	if err := ValidateCron(cfg.Scheduler.Cron); err != nil {
		return err
	}

	scheduler := asynq.NewScheduler(task.RedisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	entryID, err := scheduler.Register(cfg.Scheduler.Cron, NewTickTask())
	if err != nil {
		return fmt.Errorf("register expiry tick: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			zap.L().Info("[Expiry] asynq scheduler started",
				zap.String("cron", cfg.Scheduler.Cron),
				zap.String("entry_id", entryID),
			)
			return scheduler.Start()
		},
		OnStop: func(context.Context) error {
			scheduler.Shutdown()
			return nil
		},
	})
	return nil
}

// Package expiry settles duels and launched events whose time ran out.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/errutil"
	"seeker-engine/pkg/fsm"
	"seeker-engine/pkg/lock"
	"seeker-engine/pkg/rediskey"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

type DuelExpirer interface {
	GetExpiring(ctx context.Context, now time.Time) ([]*duel.Duel, error)
	Expire(ctx context.Context, duelID int64) (*duel.Duel, error)
}

type EventFinder interface {
	GetExpiredActive(ctx context.Context, now time.Time) ([]*event.LaunchedEvent, error)
}

type EventStopper interface {
	StopLaunchedEvent(ctx context.Context, launchedEventID int64) (event.Result, error)
}

// Report counts what one tick did per entity kind.
type Report struct {
	Settled map[string]int
	Skipped map[string]int
	Failed  map[string]int
}

type counter struct {
	settled, skipped, failed atomic.Int64
}

type Scheduler struct {
	duels   DuelExpirer
	events  EventFinder
	stopper EventStopper
	locker  lock.Locker
	metrics *Metrics
	tracer  trace.Tracer
	workers int
}

type SchedulerParams struct {
	fx.In
	Config         *config.Config
	Duel           *duel.Service
	Launched       *event.LaunchedEventService
	Stopper        *event.Stopper
	Locker         lock.Locker
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return New(p.Duel, p.Launched, p.Stopper, p.Locker, p.Metrics,
		p.TracerProvider.Tracer("seeker-engine/expiry"), p.Config.Scheduler.Workers)
}

func New(duels DuelExpirer, events EventFinder, stopper EventStopper, locker lock.Locker, metrics *Metrics, tracer trace.Tracer, workers int) *Scheduler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Scheduler{
		duels:   duels,
		events:  events,
		stopper: stopper,
		locker:  locker,
		metrics: metrics,
		tracer:  tracer,
		workers: workers,
	}
}

// Tick runs both scans once. Every due entity is attempted under its own
// lock; a held lock, an already settled entity or a failure affects only
// that entity, which stays due for the next tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Report {
	ctx, span := s.tracer.Start(ctx, "expiry.tick", trace.WithAttributes(attribute.String("now", now.Format(time.RFC3339))))
	defer span.End()

	start := time.Now()
	log := zap.L().With(zap.String("trace_id", span.SpanContext().TraceID().String()))

	counts := map[string]*counter{KindDuel: {}, KindLaunchedEvent: {}}

	var g errgroup.Group
	g.SetLimit(s.workers)

	if duels, err := s.duels.GetExpiring(ctx, now); err != nil {
		log.Error("failed to load expiring duels", zap.Error(err))
		span.RecordError(err)
	} else {
		for _, d := range duels {
			id := d.ID
			g.Go(func() error {
				s.settle(ctx, log, KindDuel, id, rediskey.DuelLock(id), counts[KindDuel], func(ctx context.Context) error {
					_, err := s.duels.Expire(ctx, id)
					return err
				})
				return nil
			})
		}
	}

	if events, err := s.events.GetExpiredActive(ctx, now); err != nil {
		log.Error("failed to load expired launched events", zap.Error(err))
		span.RecordError(err)
	} else {
		for _, le := range events {
			id := le.ID
			g.Go(func() error {
				s.settle(ctx, log, KindLaunchedEvent, id, rediskey.LaunchedEventLock(id), counts[KindLaunchedEvent], func(ctx context.Context) error {
					_, err := s.stopper.StopLaunchedEvent(ctx, id)
					return err
				})
				return nil
			})
		}
	}

	_ = g.Wait()

	rep := Report{Settled: map[string]int{}, Skipped: map[string]int{}, Failed: map[string]int{}}
	for kind, c := range counts {
		rep.Settled[kind] = int(c.settled.Load())
		rep.Skipped[kind] = int(c.skipped.Load())
		rep.Failed[kind] = int(c.failed.Load())
		if rep.Failed[kind] > 0 {
			span.SetStatus(codes.Error, fmt.Sprintf("%d %s settlements failed", rep.Failed[kind], kind))
		}
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.duration.Observe(elapsed.Seconds())
	}
	if rep.total() > 0 {
		log.Info("expiry tick done",
			zap.Any("settled", rep.Settled),
			zap.Any("skipped", rep.Skipped),
			zap.Any("failed", rep.Failed),
			zap.Duration("duration", elapsed),
		)
	}
	return rep
}

func (r Report) total() int {
	n := 0
	for _, m := range []map[string]int{r.Settled, r.Skipped, r.Failed} {
		for _, v := range m {
			n += v
		}
	}
	return n
}

func (s *Scheduler) settle(ctx context.Context, log *zap.Logger, kind string, id int64, key string, c *counter, action lock.Action) {
	log = log.With(zap.String("kind", kind), zap.Int64("id", id))

	defer func() {
		if r := recover(); r != nil {
			log.Error("settlement panicked", zap.Any("panic", r), zap.Stack("stack"))
			s.count(kind, c, outcomeFailed)
		}
	}()

	ran, err := s.locker.TryLockAndRun(ctx, key, action)
	switch {
	case err != nil && errors.Is(err, fsm.ErrIllegalTransition):
		log.Debug("already settled, skipping", zap.Error(err))
		s.count(kind, c, outcomeSkipped)
	case err != nil && errutil.IsExpected(err):
		// e.g. a lost personage version race; the entity stays due
		log.Warn("settlement rejected", zap.String("status", string(errutil.StatusOf(err))), zap.Error(err))
		s.count(kind, c, outcomeFailed)
	case err != nil:
		log.Error("settlement failed", zap.Error(err))
		s.count(kind, c, outcomeFailed)
	case !ran:
		log.Debug("lock held, skipping")
		s.count(kind, c, outcomeSkipped)
	default:
		s.count(kind, c, outcomeSettled)
	}
}

type outcome int

const (
	outcomeSettled outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Scheduler) count(kind string, c *counter, o outcome) {
	switch o {
	case outcomeSettled:
		c.settled.Add(1)
		if s.metrics != nil {
			s.metrics.settled.WithLabelValues(kind).Inc()
		}
	case outcomeSkipped:
		c.skipped.Add(1)
		if s.metrics != nil {
			s.metrics.skipped.WithLabelValues(kind).Inc()
		}
	case outcomeFailed:
		c.failed.Add(1)
		if s.metrics != nil {
			s.metrics.failed.WithLabelValues(kind).Inc()
		}
	}
}

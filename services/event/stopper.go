package event

import (
	"context"
	"fmt"

	"seeker-engine/pkg/db/option"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives settled launched events after commit. Delivery is best
// effort and never fed back into lifecycle state.
type Notifier interface {
	RaidCompleted(ctx context.Context, ge *GroupEvent, res *RaidCompleted)
	RaidExpired(ctx context.Context, ge *GroupEvent, res *RaidExpired)
	QuestOutcome(ctx context.Context, userID int64, res Result)
}

// Processing dispatches a launched event to the resolver of its template type.
type Processing struct {
	launched *LaunchedEventService
	raid     *RaidService
	quest    *PersonalQuestService
}

func NewProcessing(launched *LaunchedEventService, raid *RaidService, quest *PersonalQuestService) *Processing {
	return &Processing{launched: launched, raid: raid, quest: quest}
}

func (p *Processing) ProcessEvent(ctx context.Context, tx *gorm.DB, le *LaunchedEvent) (Result, error) {
	tmpl, err := p.launched.WithTrx(tx).GetEvent(ctx, le.EventID)
	if err != nil {
		return nil, err
	}

	switch tmpl.Type {
	case TypeRaid:
		return p.raid.StopRaid(ctx, tx, le)
	case TypePersonalQuest:
		return p.quest.StopQuest(ctx, tx, le)
	default:
		return nil, fmt.Errorf("event %d has unknown type %q", tmpl.ID, tmpl.Type)
	}
}

type Stopper struct {
	db         *gorm.DB
	launched   *LaunchedEventService
	processing *Processing
	notifier   Notifier
}

type StopperParams struct {
	fx.In
	DB         *gorm.DB
	Launched   *LaunchedEventService
	Processing *Processing
	Notifier   Notifier `optional:"true"`
}

func NewStopper(p StopperParams) *Stopper {
	return &Stopper{
		db:         p.DB,
		launched:   p.Launched,
		processing: p.Processing,
		notifier:   p.Notifier,
	}
}

// StopLaunchedEvent settles one launched event. The reload, the resolver and
// the status change share one transaction, so an event that is already
// closed, or a resolver that fails, leaves nothing behind. Notifications go
// out only after commit.
func (s *Stopper) StopLaunchedEvent(ctx context.Context, launchedEventID int64) (Result, error) {
	log := zap.L().With(zap.Int64("launched_event_id", launchedEventID))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.With(zap.String("trace_id", sc.TraceID().String()))
	}

	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		launched := s.launched.WithTrx(tx)
		le, err := launched.GetByID(ctx, launchedEventID, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if Machine.IsTerminal(le.Status) {
			_, err := Machine.Next(le.Status, TransitionExpire)
			return err
		}

		res, err = s.processing.ProcessEvent(ctx, tx, le)
		if err != nil {
			return err
		}

		t, err := TransitionFor(res)
		if err != nil {
			return err
		}
		return launched.Close(ctx, le, t)
	})
	if err != nil {
		return nil, err
	}

	log.Info("launched event stopped", zap.String("result", fmt.Sprintf("%T", res)))
	s.notify(ctx, log, launchedEventID, res)
	return res, nil
}

func (s *Stopper) notify(ctx context.Context, log *zap.Logger, launchedEventID int64, res Result) {
	switch r := res.(type) {
	case *RaidCompleted, *RaidExpired:
		if s.notifier == nil {
			return
		}
		groups, err := s.launched.GetGroupEvents(ctx, launchedEventID)
		if err != nil {
			log.Error("failed to load group events", zap.Error(err))
			return
		}
		for _, ge := range groups {
			switch rr := r.(type) {
			case *RaidCompleted:
				s.notifier.RaidCompleted(ctx, ge, rr)
			case *RaidExpired:
				s.notifier.RaidExpired(ctx, ge, rr)
			}
		}
	case *QuestSuccess:
		if s.notifier != nil {
			s.notifier.QuestOutcome(ctx, r.Personage.UserID, r)
		}
	case *QuestFailure:
		if s.notifier != nil {
			s.notifier.QuestOutcome(ctx, r.Personage.UserID, r)
		}
	case *QuestError:
		log.Warn("personal quest stopped with error", zap.String("reason", r.Reason))
	default:
		log.Error("unhandled event result", zap.String("type", fmt.Sprintf("%T", res)))
	}
}

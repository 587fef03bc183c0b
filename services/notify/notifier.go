package notify

import (
	"context"
	"fmt"
	"strings"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/task"
	"seeker-engine/pkg/taskname"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Notifier is the full notification boundary of the engine.
type Notifier interface {
	duel.Notifier
	event.Notifier
}

const (
	ModeTask = "task"
	ModeLog  = "log"

	maxRetry = 5
)

type Params struct {
	fx.In
	Config   *config.Config
	Enqueuer task.Enqueuer `optional:"true"`
}

func New(p Params) (Notifier, error) {
	switch strings.ToLower(p.Config.Notify.Mode) {
	case "", ModeTask:
		if p.Enqueuer == nil {
			return nil, fmt.Errorf("notify mode %q requires the asynq client", ModeTask)
		}
		return NewTaskNotifier(p.Enqueuer), nil
	case ModeLog:
		return NewLogNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notify mode %q", p.Config.Notify.Mode)
	}
}

// TaskNotifier hands every notification to the worker as an asynq task.
type TaskNotifier struct {
	enq task.Enqueuer
}

func NewTaskNotifier(enq task.Enqueuer) *TaskNotifier {
	return &TaskNotifier{enq: enq}
}

func (n *TaskNotifier) enqueue(ctx context.Context, typename string, payload any, fields ...zap.Field) {
	log := zap.L().With(append(fields, zap.String("task_type", typename))...)

	t, err := task.NewJSONTask(typename, payload)
	if err != nil {
		log.Error("failed to build notification", zap.Error(err))
		return
	}
	info, err := n.enq.Enqueue(ctx, t, asynq.Queue(taskname.QueueNotify), asynq.MaxRetry(maxRetry))
	if err != nil {
		log.Error("failed to enqueue notification", zap.Error(err))
		return
	}
	log.Debug("notification enqueued", zap.String("task_id", info.ID))
}

func (n *TaskNotifier) DuelExpired(ctx context.Context, d *duel.Duel) {
	n.enqueue(ctx, taskname.NotifyDuelExpired, duelExpiredPayload(d), zap.Int64("duel_id", d.ID))
}

func (n *TaskNotifier) DuelFinished(ctx context.Context, res *duel.Result) {
	n.enqueue(ctx, taskname.NotifyDuelFinished, duelFinishedPayload(res), zap.Int64("duel_id", res.Duel.ID))
}

func (n *TaskNotifier) RaidCompleted(ctx context.Context, ge *event.GroupEvent, res *event.RaidCompleted) {
	n.enqueue(ctx, taskname.NotifyRaidCompleted, raidCompletedPayload(ge, res),
		zap.Int64("launched_event_id", ge.LaunchedEventID), zap.Int64("group_id", ge.GroupID))
}

func (n *TaskNotifier) RaidExpired(ctx context.Context, ge *event.GroupEvent, res *event.RaidExpired) {
	n.enqueue(ctx, taskname.NotifyRaidExpired, raidExpiredPayload(ge, res),
		zap.Int64("launched_event_id", ge.LaunchedEventID), zap.Int64("group_id", ge.GroupID))
}

func (n *TaskNotifier) QuestOutcome(ctx context.Context, userID int64, res event.Result) {
	p, ok := questPayload(userID, res)
	if !ok {
		zap.L().Warn("no quest outcome to deliver", zap.Int64("user_id", userID), zap.String("result", fmt.Sprintf("%T", res)))
		return
	}
	n.enqueue(ctx, taskname.NotifyQuestOutcome, p, zap.Int64("user_id", userID))
}

// LogNotifier only writes notifications to the log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) DuelExpired(ctx context.Context, d *duel.Duel) {
	zap.L().Info("notify duel expired", zap.Any("payload", duelExpiredPayload(d)))
}

func (LogNotifier) DuelFinished(ctx context.Context, res *duel.Result) {
	zap.L().Info("notify duel finished", zap.Any("payload", duelFinishedPayload(res)))
}

func (LogNotifier) RaidCompleted(ctx context.Context, ge *event.GroupEvent, res *event.RaidCompleted) {
	zap.L().Info("notify raid completed", zap.Any("payload", raidCompletedPayload(ge, res)))
}

func (LogNotifier) RaidExpired(ctx context.Context, ge *event.GroupEvent, res *event.RaidExpired) {
	zap.L().Info("notify raid expired", zap.Any("payload", raidExpiredPayload(ge, res)))
}

func (LogNotifier) QuestOutcome(ctx context.Context, userID int64, res event.Result) {
	p, _ := questPayload(userID, res)
	zap.L().Info("notify quest outcome", zap.Any("payload", p))
}

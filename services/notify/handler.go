package notify

import (
	"context"
	"fmt"
	"strings"

	"seeker-engine/pkg/task"
	"seeker-engine/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sender is the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	EditMessage(ctx context.Context, chatID, messageID int64, text string) error
	ReplyMessage(ctx context.Context, chatID, replyToID int64, text string) error
}

// LogSender stands in for the chat transport by logging each message.
type LogSender struct{}

func NewLogSender() Sender { return LogSender{} }

func (LogSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	zap.L().Info("send message", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}

func (LogSender) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	zap.L().Info("edit message", zap.Int64("chat_id", chatID), zap.Int64("message_id", messageID), zap.String("text", text))
	return nil
}

func (LogSender) ReplyMessage(ctx context.Context, chatID, replyToID int64, text string) error {
	zap.L().Info("reply message", zap.Int64("chat_id", chatID), zap.Int64("reply_to_id", replyToID), zap.String("text", text))
	return nil
}

// Handler delivers notification tasks on the worker.
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.NotifyDuelExpired, h.HandleDuelExpired)
	mux.HandleFunc(taskname.NotifyDuelFinished, h.HandleDuelFinished)
	mux.HandleFunc(taskname.NotifyRaidCompleted, h.HandleRaidCompleted)
	mux.HandleFunc(taskname.NotifyRaidExpired, h.HandleRaidExpired)
	mux.HandleFunc(taskname.NotifyQuestOutcome, h.HandleQuestOutcome)
}

// deliver edits the original group message when there is one, otherwise
// posts a new message.
func (h *Handler) deliver(ctx context.Context, chatID int64, messageID *int64, text string) error {
	if messageID != nil {
		return h.sender.EditMessage(ctx, chatID, *messageID, text)
	}
	return h.sender.SendMessage(ctx, chatID, text)
}

func (h *Handler) HandleDuelExpired(ctx context.Context, t *asynq.Task) error {
	var p DuelExpiredPayload
	if err := task.DecodeJSON(t, &p); err != nil {
		return err
	}
	text := fmt.Sprintf("Duel #%d expired. %d returned to the challenger.", p.DuelID, p.Refund)
	return h.deliver(ctx, p.GroupID, p.MessageID, text)
}

func (h *Handler) HandleDuelFinished(ctx context.Context, t *asynq.Task) error {
	var p DuelFinishedPayload
	if err := task.DecodeJSON(t, &p); err != nil {
		return err
	}
	text := fmt.Sprintf("%s defeated %s (%d damage dealt, +%d exp).",
		p.Winner.Name, p.Loser.Name, p.Winner.Stats.DealtDamage, p.Winner.Stats.Exp)
	return h.deliver(ctx, p.GroupID, p.MessageID, text)
}

func (h *Handler) HandleRaidCompleted(ctx context.Context, t *asynq.Task) error {
	var p RaidPayload
	if err := task.DecodeJSON(t, &p); err != nil {
		return err
	}

	var b strings.Builder
	if p.PersonagesWon {
		fmt.Fprintf(&b, "%s has been defeated!", p.BossName)
	} else {
		fmt.Fprintf(&b, "%s repelled the raid.", p.BossName)
	}
	for _, o := range p.Outcomes {
		fmt.Fprintf(&b, "\n%s: %d damage, +%d exp, +%d money", o.Name, o.DealtDamage, o.Exp, o.Reward)
	}

	if p.MessageID == nil {
		return h.sender.SendMessage(ctx, p.GroupID, b.String())
	}
	// The raid post is closed and the results go out as a reply to it.
	if err := h.sender.EditMessage(ctx, p.GroupID, *p.MessageID, fmt.Sprintf("The raid on %s is over.", p.BossName)); err != nil {
		return err
	}
	return h.sender.ReplyMessage(ctx, p.GroupID, *p.MessageID, b.String())
}

func (h *Handler) HandleRaidExpired(ctx context.Context, t *asynq.Task) error {
	var p RaidPayload
	if err := task.DecodeJSON(t, &p); err != nil {
		return err
	}
	return h.deliver(ctx, p.GroupID, p.MessageID, fmt.Sprintf("Nobody came to fight %s.", p.BossName))
}

func (h *Handler) HandleQuestOutcome(ctx context.Context, t *asynq.Task) error {
	var p QuestPayload
	if err := task.DecodeJSON(t, &p); err != nil {
		return err
	}

	var text string
	switch p.Outcome {
	case QuestSucceeded:
		text = fmt.Sprintf("Quest %s completed. Reward: %d.", p.QuestCode, p.Reward)
	case QuestFailed:
		text = fmt.Sprintf("Quest %s failed.", p.QuestCode)
	default:
		return fmt.Errorf("unknown quest outcome %q: %w", p.Outcome, asynq.SkipRetry)
	}
	return h.sender.SendMessage(ctx, p.UserID, text)
}

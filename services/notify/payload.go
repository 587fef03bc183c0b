package notify

import (
	"seeker-engine/services/battle"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"
)

type DuelExpiredPayload struct {
	DuelID      int64  `json:"duel_id"`
	GroupID     int64  `json:"group_id"`
	MessageID   *int64 `json:"message_id,omitempty"`
	InitiatorID int64  `json:"initiator_id"`
	AcceptorID  int64  `json:"acceptor_id"`
	Refund      int64  `json:"refund"`
}

type FighterPayload struct {
	PersonageID int64                `json:"personage_id"`
	Name        string               `json:"name"`
	Stats       battle.FighterResult `json:"stats"`
}

type DuelFinishedPayload struct {
	DuelID    int64          `json:"duel_id"`
	GroupID   int64          `json:"group_id"`
	MessageID *int64         `json:"message_id,omitempty"`
	Winner    FighterPayload `json:"winner"`
	Loser     FighterPayload `json:"loser"`
}

type OutcomePayload struct {
	PersonageID int64  `json:"personage_id"`
	Name        string `json:"name"`
	DealtDamage int64  `json:"dealt_damage"`
	Exp         int64  `json:"exp"`
	Reward      int64  `json:"reward"`
}

type RaidPayload struct {
	LaunchedEventID int64            `json:"launched_event_id"`
	GroupID         int64            `json:"group_id"`
	MessageID       *int64           `json:"message_id,omitempty"`
	RaidCode        string           `json:"raid_code"`
	BossName        string           `json:"boss_name"`
	PersonagesWon   bool             `json:"personages_won"`
	Outcomes        []OutcomePayload `json:"outcomes,omitempty"`
}

const (
	QuestSucceeded = "SUCCESS"
	QuestFailed    = "FAILURE"
)

type QuestPayload struct {
	UserID      int64  `json:"user_id"`
	Outcome     string `json:"outcome"`
	QuestCode   string `json:"quest_code"`
	PersonageID int64  `json:"personage_id"`
	Reward      int64  `json:"reward"`
}

func duelExpiredPayload(d *duel.Duel) DuelExpiredPayload {
	return DuelExpiredPayload{
		DuelID:      d.ID,
		GroupID:     d.GroupID,
		MessageID:   d.MessageID,
		InitiatorID: d.InitiatingPersonageID,
		AcceptorID:  d.AcceptingPersonageID,
		Refund:      d.Stake.Int64(),
	}
}

func fighterPayload(r duel.PersonageResult) FighterPayload {
	return FighterPayload{PersonageID: r.Personage.ID, Name: r.Personage.Name, Stats: r.Stats}
}

func duelFinishedPayload(res *duel.Result) DuelFinishedPayload {
	return DuelFinishedPayload{
		DuelID:    res.Duel.ID,
		GroupID:   res.Duel.GroupID,
		MessageID: res.Duel.MessageID,
		Winner:    fighterPayload(res.Winner),
		Loser:     fighterPayload(res.Loser),
	}
}

func raidCompletedPayload(ge *event.GroupEvent, res *event.RaidCompleted) RaidPayload {
	p := RaidPayload{
		LaunchedEventID: ge.LaunchedEventID,
		GroupID:         ge.GroupID,
		MessageID:       ge.MessageID,
		RaidCode:        res.Raid.Code,
		BossName:        res.Raid.BossName,
		PersonagesWon:   res.PersonagesWon,
	}
	for _, o := range res.Outcomes {
		p.Outcomes = append(p.Outcomes, OutcomePayload{
			PersonageID: o.Personage.ID,
			Name:        o.Personage.Name,
			DealtDamage: o.Stats.DealtDamage,
			Exp:         o.Stats.Exp,
			Reward:      o.Reward.Int64(),
		})
	}
	return p
}

func raidExpiredPayload(ge *event.GroupEvent, res *event.RaidExpired) RaidPayload {
	return RaidPayload{
		LaunchedEventID: ge.LaunchedEventID,
		GroupID:         ge.GroupID,
		MessageID:       ge.MessageID,
		RaidCode:        res.Raid.Code,
		BossName:        res.Raid.BossName,
	}
}

// questPayload returns false for results that carry no quest outcome.
func questPayload(userID int64, res event.Result) (QuestPayload, bool) {
	switch r := res.(type) {
	case *event.QuestSuccess:
		return QuestPayload{
			UserID:      userID,
			Outcome:     QuestSucceeded,
			QuestCode:   r.Quest.Code,
			PersonageID: r.Personage.ID,
			Reward:      r.Reward.Int64(),
		}, true
	case *event.QuestFailure:
		return QuestPayload{
			UserID:      userID,
			Outcome:     QuestFailed,
			QuestCode:   r.Quest.Code,
			PersonageID: r.Personage.ID,
		}, true
	default:
		return QuestPayload{}, false
	}
}

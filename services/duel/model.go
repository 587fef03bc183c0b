package duel

import (
	"time"

	"seeker-engine/pkg/fsm"
	"seeker-engine/services/battle"
	"seeker-engine/services/personage"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusFinished Status = "FINISHED"
	StatusDeclined Status = "DECLINED"
	StatusExpired  Status = "EXPIRED"
)

type Event string

const (
	EventExpire  Event = "expire"
	EventDecline Event = "decline"
	EventFinish  Event = "finish"
)

var Machine = fsm.New[Status, Event]("duel",
	fsm.Rule[Status, Event]{From: StatusWaiting, Event: EventExpire, To: StatusExpired},
	fsm.Rule[Status, Event]{From: StatusWaiting, Event: EventDecline, To: StatusDeclined},
	fsm.Rule[Status, Event]{From: StatusWaiting, Event: EventFinish, To: StatusFinished},
)

type Duel struct {
	ID                    int64           `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	InitiatingPersonageID int64           `gorm:"column:initiating_personage_id;index" json:"initiating_personage_id"`
	AcceptingPersonageID  int64           `gorm:"column:accepting_personage_id" json:"accepting_personage_id"`
	GroupID               int64           `gorm:"column:group_id" json:"group_id"`
	Status                Status          `gorm:"column:status;index" json:"status"`
	Stake                 personage.Money `gorm:"column:stake" json:"stake"`
	MessageID             *int64          `gorm:"column:message_id" json:"message_id,omitempty"`
	WinnerPersonageID     *int64          `gorm:"column:winner_personage_id" json:"winner_personage_id,omitempty"`
	CreatedAt             time.Time       `gorm:"column:created_at" json:"created_at"`
	ExpiringDate          time.Time       `gorm:"column:expiring_date;index" json:"expiring_date"`
}

func (Duel) TableName() string { return "duel" }

type PersonageResult struct {
	Personage *personage.Personage `json:"personage"`
	Stats     battle.FighterResult `json:"stats"`
}

type Result struct {
	Duel   *Duel           `json:"duel"`
	Winner PersonageResult `json:"winner"`
	Loser  PersonageResult `json:"loser"`
}

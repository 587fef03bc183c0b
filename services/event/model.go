package event

import (
	"time"

	"seeker-engine/pkg/fsm"

	"gorm.io/datatypes"
)

type Type string

const (
	TypeRaid          Type = "RAID"
	TypePersonalQuest Type = "PERSONAL_QUEST"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

type Transition string

const (
	TransitionComplete Transition = "complete"
	TransitionExpire   Transition = "expire"
)

var Machine = fsm.New[Status, Transition]("launched_event",
	fsm.Rule[Status, Transition]{From: StatusActive, Event: TransitionComplete, To: StatusCompleted},
	fsm.Rule[Status, Transition]{From: StatusActive, Event: TransitionExpire, To: StatusExpired},
)

// Event is a template that can be launched many times.
type Event struct {
	ID       int64         `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Code     string        `gorm:"column:code;uniqueIndex" json:"code"`
	Type     Type          `gorm:"column:type" json:"type"`
	Duration time.Duration `gorm:"column:duration" json:"duration"`
}

func (Event) TableName() string { return "event" }

type LaunchedEvent struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	EventID   int64     `gorm:"column:event_id;index" json:"event_id"`
	StartDate time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;index" json:"end_date"`
	Status    Status    `gorm:"column:status;index" json:"status"`
}

func (LaunchedEvent) TableName() string { return "launched_event" }

// GroupEvent is the per-group projection of a launched event.
type GroupEvent struct {
	LaunchedEventID int64  `gorm:"column:launched_event_id;primaryKey;autoIncrement:false" json:"launched_event_id"`
	GroupID         int64  `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
	MessageID       *int64 `gorm:"column:message_id" json:"message_id,omitempty"`
}

func (GroupEvent) TableName() string { return "launched_event_group" }

type PersonageEvent struct {
	LaunchedEventID int64     `gorm:"column:launched_event_id;primaryKey;autoIncrement:false"`
	PersonageID     int64     `gorm:"column:personage_id;primaryKey;autoIncrement:false"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (PersonageEvent) TableName() string { return "personage_to_event" }

type Raid struct {
	EventID   int64  `gorm:"column:event_id;primaryKey;autoIncrement:false" json:"event_id"`
	Code      string `gorm:"column:code" json:"code"`
	BossLevel int    `gorm:"column:boss_level" json:"boss_level"`
	BossName  string `gorm:"column:boss_name" json:"boss_name"`
}

func (Raid) TableName() string { return "raid" }

type PersonalQuest struct {
	EventID int64          `gorm:"column:event_id;primaryKey;autoIncrement:false" json:"event_id"`
	Code    string         `gorm:"column:code" json:"code"`
	Locales datatypes.JSON `gorm:"column:locales" json:"locales,omitempty"`
}

func (PersonalQuest) TableName() string { return "personal_quest" }

// Models lists every table this package owns, for migration.
func Models() []any {
	return []any{&Event{}, &LaunchedEvent{}, &GroupEvent{}, &PersonageEvent{}, &Raid{}, &PersonalQuest{}}
}

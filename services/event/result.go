package event

import (
	"fmt"

	"seeker-engine/services/battle"
	"seeker-engine/services/personage"
)

// Result is the outcome of stopping a launched event. The variants in this
// file are the only implementations.
type Result interface {
	isResult()
}

type PersonageOutcome struct {
	Personage *personage.Personage `json:"personage"`
	Stats     battle.FighterResult `json:"stats"`
	Reward    personage.Money      `json:"reward"`
}

type RaidCompleted struct {
	Raid          *Raid                `json:"raid"`
	PersonagesWon bool                 `json:"personages_won"`
	Outcomes      []PersonageOutcome   `json:"outcomes"`
	Boss          battle.FighterResult `json:"boss"`
}

type RaidExpired struct {
	Raid *Raid `json:"raid"`
}

type QuestSuccess struct {
	Quest     *PersonalQuest       `json:"quest"`
	Personage *personage.Personage `json:"personage"`
	Reward    personage.Money      `json:"reward"`
}

type QuestFailure struct {
	Quest     *PersonalQuest       `json:"quest"`
	Personage *personage.Personage `json:"personage"`
}

// QuestError reports a quest whose preconditions did not hold when it was
// stopped.
type QuestError struct {
	Reason string `json:"reason"`
}

func (*RaidCompleted) isResult() {}
func (*RaidExpired) isResult()   {}
func (*QuestSuccess) isResult()  {}
func (*QuestFailure) isResult()  {}
func (*QuestError) isResult()    {}

// TransitionFor maps a result to the transition that closes its event.
func TransitionFor(r Result) (Transition, error) {
	switch r.(type) {
	case *RaidCompleted, *QuestSuccess:
		return TransitionComplete, nil
	case *RaidExpired, *QuestFailure, *QuestError:
		return TransitionExpire, nil
	default:
		return "", fmt.Errorf("unknown event result %T", r)
	}
}

package event

import (
	"context"
	"fmt"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/random"
	"seeker-engine/pkg/repository"
	"seeker-engine/services/personage"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type PersonalQuestService struct {
	cfg      *config.Holder
	rnd      random.Source
	launched *LaunchedEventService
	ledger   *personage.Service

	quest repository.Repository[PersonalQuest]
}

type PersonalQuestParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Holder
	Random    random.Source
	Launched  *LaunchedEventService
	Personage *personage.Service
}

func NewPersonalQuestService(p PersonalQuestParams) *PersonalQuestService {
	return &PersonalQuestService{
		cfg:      p.Config,
		rnd:      p.Random,
		launched: p.Launched,
		ledger:   p.Personage,
		quest:    repository.ProvideStore[PersonalQuest](p.DB),
	}
}

// StopQuest resolves a personal quest inside tx. A quest belongs to exactly
// one personage; any other participant count is reported as QuestError
// without touching balances.
func (s *PersonalQuestService) StopQuest(ctx context.Context, tx *gorm.DB, le *LaunchedEvent) (Result, error) {
	quest, err := s.quest.WithTrx(tx).FindOne(ctx, &PersonalQuest{EventID: le.EventID})
	if err != nil {
		return nil, fmt.Errorf("load quest %d: %w", le.EventID, err)
	}
	if quest == nil {
		return nil, fmt.Errorf("event %d is not quest", le.EventID)
	}

	participants, err := s.launched.WithTrx(tx).GetParticipants(ctx, le.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) != 1 {
		return &QuestError{
			Reason: fmt.Sprintf("launched quest %d has %d participants, want 1", le.ID, len(participants)),
		}, nil
	}
	p := participants[0]

	game := s.cfg.Load().Game
	if !s.rnd.Chance(game.PersonalQuest.SuccessProbability) {
		return &QuestFailure{Quest: quest, Personage: p}, nil
	}

	reward := personage.Money(s.rnd.Between(game.PersonalQuest.Reward.Min, game.PersonalQuest.Reward.Max))
	if err := s.ledger.WithTrx(tx).AddMoney(ctx, p, reward); err != nil {
		return nil, err
	}
	return &QuestSuccess{Quest: quest, Personage: p, Reward: reward}, nil
}

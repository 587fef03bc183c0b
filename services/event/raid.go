package event

import (
	"context"
	"fmt"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/random"
	"seeker-engine/pkg/repository"
	"seeker-engine/services/battle"
	"seeker-engine/services/personage"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RaidService struct {
	cfg      *config.Holder
	rnd      random.Source
	launched *LaunchedEventService
	ledger   *personage.Service

	raid repository.Repository[Raid]
}

type RaidParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Holder
	Random    random.Source
	Launched  *LaunchedEventService
	Personage *personage.Service
}

func NewRaidService(p RaidParams) *RaidService {
	return &RaidService{
		cfg:      p.Config,
		rnd:      p.Random,
		launched: p.Launched,
		ledger:   p.Personage,
		raid:     repository.ProvideStore[Raid](p.DB),
	}
}

// StopRaid resolves the raid inside tx. Without participants the raid simply
// expires. Otherwise the participants fight the boss, everyone keeps the
// experience they earned, and each participant is paid a reward when the
// boss falls.
func (s *RaidService) StopRaid(ctx context.Context, tx *gorm.DB, le *LaunchedEvent) (Result, error) {
	raid, err := s.raid.WithTrx(tx).FindOne(ctx, &Raid{EventID: le.EventID})
	if err != nil {
		return nil, fmt.Errorf("load raid %d: %w", le.EventID, err)
	}
	if raid == nil {
		return nil, fmt.Errorf("event %d is not raid", le.EventID)
	}

	participants, err := s.launched.WithTrx(tx).GetParticipants(ctx, le.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return &RaidExpired{Raid: raid}, nil
	}

	game := s.cfg.Load().Game
	team := make([]battle.Fighter, 0, len(participants))
	for _, p := range participants {
		team = append(team, battle.NewFighter(p.ID, p.Name, p.Level))
	}
	fight := battle.NewTwoTeamBattle(s.rnd, game.Battle.MaxRounds, game.Battle.WinExpBonus).Battle(
		team,
		[]battle.Fighter{battle.NewBoss(raid.BossLevel, raid.BossName)},
	)
	won := fight.Winner == battle.FirstTeam

	ledger := s.ledger.WithTrx(tx)
	outcomes := make([]PersonageOutcome, 0, len(participants))
	for i, p := range participants {
		out := PersonageOutcome{Personage: p, Stats: fight.First[i]}
		if err := ledger.AddExperience(ctx, p, out.Stats.Exp); err != nil {
			return nil, err
		}
		if won {
			out.Reward = personage.Money(s.rnd.Between(game.Raid.Reward.Min, game.Raid.Reward.Max))
			if err := ledger.AddMoney(ctx, p, out.Reward); err != nil {
				return nil, err
			}
		}
		outcomes = append(outcomes, out)
	}

	return &RaidCompleted{
		Raid:          raid,
		PersonagesWon: won,
		Outcomes:      outcomes,
		Boss:          fight.Second[0],
	}, nil
}

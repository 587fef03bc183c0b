package duel

import (
	"context"
	"fmt"
	"time"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/db/option"
	"seeker-engine/pkg/fsm"
	"seeker-engine/pkg/lock"
	"seeker-engine/pkg/random"
	"seeker-engine/pkg/rediskey"
	"seeker-engine/pkg/repository"
	"seeker-engine/services/battle"
	"seeker-engine/services/personage"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives settled duels after commit. Delivery is best effort.
type Notifier interface {
	DuelExpired(ctx context.Context, d *Duel)
	DuelFinished(ctx context.Context, res *Result)
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	cfg       *config.Holder
	rnd       random.Source
	locker    lock.Locker
	notifier  Notifier
	personage *personage.Service
	now       func() time.Time

	duel repository.Repository[Duel]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Config    *config.Holder
	Random    random.Source
	Locker    lock.Locker
	Personage *personage.Service
	Notifier  Notifier `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		cfg:       p.Config,
		rnd:       p.Random,
		locker:    p.Locker,
		notifier:  p.Notifier,
		personage: p.Personage,
		now:       func() time.Time { return time.Now().UTC() },

		duel: repository.ProvideStore[Duel](p.DB),
	}
}

// Create escrows the stake from the initiator and opens a WAITING duel.
// Nothing is written when either precondition fails.
func (s *Service) Create(ctx context.Context, initiatorID, acceptorID, groupID int64) (*Duel, error) {
	if initiatorID == acceptorID {
		return nil, ErrSelfDuel
	}

	game := s.cfg.Load().Game
	price := personage.Money(game.Duel.Price)

	var created *Duel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.duel.WithTrx(tx).FindOne(ctx, &Duel{
			InitiatingPersonageID: initiatorID,
			Status:                StatusWaiting,
		})
		if err != nil {
			return fmt.Errorf("find waiting duel: %w", err)
		}
		if existing != nil {
			return ErrPersonageAlreadyHasDuel
		}

		ledger := s.personage.WithTrx(tx)
		initiator, err := ledger.GetByID(ctx, initiatorID)
		if err != nil {
			return err
		}
		if initiator.Money.LessThan(price) {
			return &NotEnoughMoneyError{Required: price}
		}
		if err := ledger.TakeMoney(ctx, initiator, price); err != nil {
			return err
		}

		now := s.now()
		created = &Duel{
			ID:                    s.node.Generate().Int64(),
			InitiatingPersonageID: initiatorID,
			AcceptingPersonageID:  acceptorID,
			GroupID:               groupID,
			Status:                StatusWaiting,
			Stake:                 price,
			CreatedAt:             now,
			ExpiringDate:          now.Add(game.Duel.LifeTime),
		}
		return s.duel.WithTrx(tx).Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("duel created",
		zap.Int64("duel_id", created.ID),
		zap.Int64("initiator_id", initiatorID),
		zap.Int64("acceptor_id", acceptorID),
		zap.Time("expiring_date", created.ExpiringDate),
	)
	return created, nil
}

func (s *Service) AddMessageID(ctx context.Context, duelID, messageID int64) error {
	return s.duel.Update(ctx, duelID, map[string]any{"message_id": messageID})
}

func (s *Service) GetByID(ctx context.Context, duelID int64) (*Duel, error) {
	return s.getByID(ctx, s.duel, duelID)
}

func (s *Service) getByID(ctx context.Context, repo repository.Repository[Duel], duelID int64, opts ...option.QueryOption) (*Duel, error) {
	d, err := repo.FindOne(ctx, &Duel{ID: duelID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("load duel %d: %w", duelID, err)
	}
	if d == nil {
		return nil, fmt.Errorf("duel %d: %w", duelID, ErrNotFound)
	}
	return d, nil
}

// GetExpiring lists WAITING duels whose expiring date is before now.
func (s *Service) GetExpiring(ctx context.Context, now time.Time) ([]*Duel, error) {
	return s.duel.Find(ctx, &Duel{Status: StatusWaiting},
		option.ApplyOperator(option.Condition{
			Field:    "expiring_date",
			Operator: option.LT,
			Value:    now.UTC(),
		}),
		option.WithSortBy(option.QuerySortBy{SortBy: "expiring_date", OrderBy: "asc"}),
	)
}

func (s *Service) GetWaitingByInitiator(ctx context.Context, personageID int64) (*Duel, error) {
	return s.duel.FindOne(ctx, &Duel{InitiatingPersonageID: personageID, Status: StatusWaiting})
}

// Expire closes a WAITING duel and refunds the stake.
func (s *Service) Expire(ctx context.Context, duelID int64) (*Duel, error) {
	d, err := s.close(ctx, duelID, EventExpire)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.DuelExpired(ctx, d)
	}
	return d, nil
}

// Decline closes a WAITING duel on the challenged side's refusal and refunds
// the stake.
func (s *Service) Decline(ctx context.Context, duelID int64) (*Duel, error) {
	return s.close(ctx, duelID, EventDecline)
}

// close applies a refunding transition. A duel that is no longer WAITING
// yields an illegal transition and no refund.
func (s *Service) close(ctx context.Context, duelID int64, event Event) (*Duel, error) {
	var closed *Duel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.transition(ctx, tx, duelID, event)
		if err != nil {
			return err
		}

		ledger := s.personage.WithTrx(tx)
		initiator, err := ledger.GetByID(ctx, d.InitiatingPersonageID)
		if err != nil {
			return err
		}
		if err := ledger.AddMoney(ctx, initiator, d.Stake); err != nil {
			return fmt.Errorf("refund duel %d: %w", d.ID, err)
		}

		closed = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("duel closed",
		zap.Int64("duel_id", closed.ID),
		zap.String("status", string(closed.Status)),
		zap.Int64("refund", closed.Stake.Int64()),
	)
	return closed, nil
}

// transition loads the duel, checks the move against Machine and writes it
// only if the stored status is still the one that was checked.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, duelID int64, event Event) (*Duel, error) {
	repo := s.duel.WithTrx(tx)
	d, err := s.getByID(ctx, repo, duelID, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}

	next, err := Machine.Next(d.Status, event)
	if err != nil {
		return nil, err
	}

	n, err := repo.UpdateWhere(ctx,
		map[string]any{"id": d.ID, "status": string(d.Status)},
		map[string]any{"status": string(next)},
	)
	if err != nil {
		return nil, fmt.Errorf("update duel %d: %w", d.ID, err)
	}
	if n == 0 {
		return nil, &fsm.TransitionError{Machine: "duel", From: string(d.Status), Event: string(event)}
	}

	d.Status = next
	return d, nil
}

// Finish marks the duel FINISHED before fighting, so a second caller sees a
// settled duel. Both personages gain battle experience and the winner is
// stored on the duel.
func (s *Service) Finish(ctx context.Context, duelID int64) (*Result, error) {
	game := s.cfg.Load().Game

	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.transition(ctx, tx, duelID, EventFinish)
		if err != nil {
			return err
		}

		ledger := s.personage.WithTrx(tx)
		initiator, err := ledger.GetByID(ctx, d.InitiatingPersonageID)
		if err != nil {
			return err
		}
		acceptor, err := ledger.GetByID(ctx, d.AcceptingPersonageID)
		if err != nil {
			return err
		}

		fight := battle.NewTwoTeamBattle(s.rnd, game.Battle.MaxRounds, game.Battle.WinExpBonus).Battle(
			[]battle.Fighter{fighterOf(initiator)},
			[]battle.Fighter{fighterOf(acceptor)},
		)

		winner := PersonageResult{Personage: initiator, Stats: fight.First[0]}
		loser := PersonageResult{Personage: acceptor, Stats: fight.Second[0]}
		if fight.Winner == battle.SecondTeam {
			winner, loser = loser, winner
		}

		winnerID := winner.Personage.ID
		if err := s.duel.WithTrx(tx).Update(ctx, d.ID, map[string]any{"winner_personage_id": winnerID}); err != nil {
			return fmt.Errorf("store duel %d winner: %w", d.ID, err)
		}
		d.WinnerPersonageID = &winnerID

		if err := ledger.AddExperience(ctx, winner.Personage, winner.Stats.Exp); err != nil {
			return err
		}
		if err := ledger.AddExperience(ctx, loser.Personage, loser.Stats.Exp); err != nil {
			return err
		}
		if game.Duel.PayoutToWinner {
			if err := ledger.AddMoney(ctx, winner.Personage, d.Stake); err != nil {
				return err
			}
		}

		res = &Result{Duel: d, Winner: winner, Loser: loser}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("duel finished",
		zap.Int64("duel_id", res.Duel.ID),
		zap.Int64("winner_id", res.Winner.Personage.ID),
		zap.Int64("loser_id", res.Loser.Personage.ID),
	)
	if s.notifier != nil {
		s.notifier.DuelFinished(ctx, res)
	}
	return res, nil
}

// Accept fights the duel on behalf of the challenged personage under the
// duel's lock.
func (s *Service) Accept(ctx context.Context, duelID, acceptingPersonageID int64) (*Result, error) {
	if err := s.checkAcceptor(ctx, duelID, acceptingPersonageID); err != nil {
		return nil, err
	}

	var res *Result
	ran, err := s.locker.TryLockAndRun(ctx, rediskey.DuelLock(duelID), func(ctx context.Context) error {
		var err error
		res, err = s.Finish(ctx, duelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ran {
		return nil, ErrDuelBusy
	}
	return res, nil
}

// DeclineBy declines the duel on behalf of the challenged personage under the
// duel's lock.
func (s *Service) DeclineBy(ctx context.Context, duelID, personageID int64) (*Duel, error) {
	if err := s.checkAcceptor(ctx, duelID, personageID); err != nil {
		return nil, err
	}

	var d *Duel
	ran, err := s.locker.TryLockAndRun(ctx, rediskey.DuelLock(duelID), func(ctx context.Context) error {
		var err error
		d, err = s.Decline(ctx, duelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ran {
		return nil, ErrDuelBusy
	}
	return d, nil
}

func (s *Service) checkAcceptor(ctx context.Context, duelID, personageID int64) error {
	d, err := s.GetByID(ctx, duelID)
	if err != nil {
		return err
	}
	if d.AcceptingPersonageID != personageID {
		return ErrNotAcceptingPersonage
	}
	return nil
}

func fighterOf(p *personage.Personage) battle.Fighter {
	return battle.NewFighter(p.ID, p.Name, p.Level)
}

package personage

import (
	"context"
	"fmt"

	"seeker-engine/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the economy ledger. Every write is a compare-and-swap on
// Version, so a racing writer surfaces as ErrConcurrentUpdate instead of a
// lost update. It holds no locks of its own.
type Service struct {
	db        *gorm.DB
	personage repository.Repository[Personage]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		personage: repository.ProvideStore[Personage](p.DB),
	}
}

// WithTrx binds the ledger to the caller's transaction.
func (s *Service) WithTrx(tx *gorm.DB) *Service {
	return &Service{
		db:        tx,
		personage: s.personage.WithTrx(tx),
	}
}

func (s *Service) Create(ctx context.Context, p *Personage) error {
	if p.Level < StartLevel {
		p.Level = StartLevel
	}
	if p.Money < 0 {
		return ErrNegativeAmount
	}
	return s.personage.Create(ctx, p)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Personage, error) {
	p, err := s.personage.FindOne(ctx, &Personage{ID: id})
	if err != nil {
		return nil, fmt.Errorf("load personage %d: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("personage %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// GetByIDs loads personages preserving the order of ids. Missing ids fail.
func (s *Service) GetByIDs(ctx context.Context, ids []int64) ([]*Personage, error) {
	out := make([]*Personage, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// TakeMoney debits amount. Nothing is written when the balance is short.
func (s *Service) TakeMoney(ctx context.Context, p *Personage, amount Money) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if p.Money.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return s.swap(ctx, p, p.Money.Sub(amount), p.Level, p.CurrentExp)
}

func (s *Service) AddMoney(ctx context.Context, p *Personage, amount Money) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	return s.swap(ctx, p, p.Money.Add(amount), p.Level, p.CurrentExp)
}

func (s *Service) AddExperience(ctx context.Context, p *Personage, delta int64) error {
	if delta < 0 {
		return ErrNegativeAmount
	}
	level, exp := ApplyExperience(p.Level, p.CurrentExp, delta)
	if level > p.Level {
		zap.L().Debug("personage level up",
			zap.Int64("personage_id", p.ID),
			zap.Int("from", p.Level),
			zap.Int("to", level),
		)
	}
	return s.swap(ctx, p, p.Money, level, exp)
}

// swap writes the new balance and experience if p is still at the version
// it was loaded with, then advances p in place.
func (s *Service) swap(ctx context.Context, p *Personage, money Money, level int, exp int64) error {
	n, err := s.personage.UpdateWhere(ctx,
		map[string]any{"id": p.ID, "version": p.Version},
		map[string]any{
			"money":       money.Int64(),
			"level":       level,
			"current_exp": exp,
			"version":     p.Version + 1,
		},
	)
	if err != nil {
		return fmt.Errorf("update personage %d: %w", p.ID, err)
	}
	if n == 0 {
		zap.L().Warn("personage version mismatch",
			zap.Int64("personage_id", p.ID),
			zap.Int64("version", p.Version),
		)
		return fmt.Errorf("personage %d: %w", p.ID, ErrConcurrentUpdate)
	}

	p.Money = money
	p.Level = level
	p.CurrentExp = exp
	p.Version++
	return nil
}

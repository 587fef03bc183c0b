package bootstrap

import (
	"context"
	"fmt"

	"seeker-engine/pkg/config"
	"seeker-engine/services/duel"
	"seeker-engine/services/event"
	"seeker-engine/services/personage"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		config: p.Config,
	}
}

// Models lists every table the engine reads or writes.
func Models() []any {
	return append([]any{&personage.Personage{}, &duel.Duel{}}, event.Models()...)
}

// Migrate creates or updates the schema when DATABASE.AUTO_MIGRATE is set.
func (s *Service) Migrate(ctx context.Context) error {
	if !s.config.Database.AutoMigrate {
		zap.L().Info("[bootstrap] auto migration disabled")
		return nil
	}

	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	zap.L().Info("[bootstrap] schema migrated", zap.Int("tables", len(Models())))
	return nil
}

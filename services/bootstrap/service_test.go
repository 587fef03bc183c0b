package bootstrap

import (
	"context"
	"testing"

	"seeker-engine/pkg/config"
	"seeker-engine/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestMigrate(t *testing.T) {
	db := testutil.NewTestDB(t)

	cfg := &config.Config{}
	svc := NewService(ServiceParams{DB: db, Config: cfg})
	require.NoError(t, svc.Migrate(context.Background()))
	require.False(t, db.Migrator().HasTable("duel"))

	cfg.Database.AutoMigrate = true
	require.NoError(t, svc.Migrate(context.Background()))
	for _, table := range []string{"personage", "duel", "event", "launched_event", "launched_event_group", "personage_to_event", "raid", "personal_quest"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}

	// idempotent
	require.NoError(t, svc.Migrate(context.Background()))
}

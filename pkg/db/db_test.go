package db

import (
	"testing"

	"seeker-engine/pkg/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func TestDialect(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "seeker"
	cfg.Database.DBNAME = "seeker"

	cfg.Database.Type = "postgres"
	d, err := Dialect(cfg)
	require.NoError(t, err)
	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	require.Equal(t, "seeker", getDBNameFromDialector(pg))

	cfg.Database.Type = "mysql"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	my, ok := d.(*mysql.Dialector)
	require.True(t, ok)
	require.Equal(t, "seeker", getDBNameFromDialector(my))

	cfg.Database.Type = "sqlite"
	cfg.Database.DBNAME = "file::memory:"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	_, ok = d.(*sqlite.Dialector)
	require.True(t, ok)

	cfg.Database.Type = "oracle"
	_, err = Dialect(cfg)
	require.Error(t, err)
}

func TestNewSqlite(t *testing.T) {
	cfg := &config.Config{AppEnv: "production"}
	db, err := New(cfg, sqlite.Open("file:TestNewSqlite?mode=memory&cache=shared"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())
}

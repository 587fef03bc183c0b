package config

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDefaults(t *testing.T) {
	cfg, err := decode(newViper())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, int64(3), cfg.Game.Duel.Price)
	require.Equal(t, 10*time.Minute, cfg.Game.Duel.LifeTime)
	require.False(t, cfg.Game.Duel.PayoutToWinner)
	require.Equal(t, time.Minute, cfg.Scheduler.Period)
	require.Equal(t, "@every 1m", cfg.Scheduler.Cron)
	require.Equal(t, 4, cfg.Scheduler.Workers)
	require.Equal(t, "redis", cfg.Lock.Backend)
	require.Equal(t, Range{Min: 5, Max: 15}, cfg.Game.PersonalQuest.Reward)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GAME_DUEL_PRICE", "7")
	t.Setenv("SCHEDULER_MODE", "asynq")

	cfg, err := decode(newViper())
	require.NoError(t, err)
	require.Equal(t, int64(7), cfg.Game.Duel.Price)
	require.Equal(t, "asynq", cfg.Scheduler.Mode)
}

func TestGameValidate(t *testing.T) {
	valid := func() Game {
		var g Game
		g.Duel.LifeTime = time.Minute
		g.Duel.Price = 3
		g.PersonalQuest.SuccessProbability = 0.5
		g.PersonalQuest.Reward = Range{Min: 1, Max: 2}
		g.Raid.Reward = Range{Min: 1, Max: 2}
		return g
	}

	require.NoError(t, valid().Validate())

	g := valid()
	g.Duel.Price = -1
	require.Error(t, g.Validate())

	g = valid()
	g.Duel.LifeTime = 0
	require.Error(t, g.Validate())

	g = valid()
	g.PersonalQuest.SuccessProbability = 1.5
	require.Error(t, g.Validate())

	g = valid()
	g.PersonalQuest.Reward = Range{Min: 5, Max: 1}
	require.ErrorContains(t, g.Validate(), "GAME.PERSONAL_QUEST.REWARD")

	g = valid()
	g.Raid.Reward = Range{Min: -1, Max: 1}
	require.ErrorContains(t, g.Validate(), "GAME.RAID.REWARD")
}

func TestHolder(t *testing.T) {
	first := &Config{AppName: "first"}
	h := NewHolder(first)
	require.Same(t, first, h.Load())

	h.Store(nil)
	require.Same(t, first, h.Load())

	second := &Config{AppName: "second"}
	h.Store(second)
	require.Same(t, second, h.Load())
}

func TestPollRemoteStoresValidConfigs(t *testing.T) {
	v := newViper()
	cfg, err := decode(v)
	require.NoError(t, err)
	h := NewHolder(cfg)

	// fetch rounds: an error, an invalid price, then a valid price.
	var round atomic.Int32
	fetch := func() error {
		switch round.Add(1) {
		case 1:
			return errors.New("consul unreachable")
		case 2:
			v.Set("GAME.DUEL.PRICE", -1)
		default:
			v.Set("GAME.DUEL.PRICE", 9)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pollRemote(ctx, time.Millisecond, fetch, v, h)
	}()

	require.Eventually(t, func() bool { return h.Load().Game.Duel.Price == 9 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, round.Load(), int32(3))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not exit after cancel")
	}
}

func TestWatchRemoteStopsWithApp(t *testing.T) {
	v := newViper()
	cfg, err := decode(v)
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	WatchRemote(lc, v, NewHolder(cfg))
	lc.RequireStart()
	lc.RequireStop()
}

func TestSelect(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")
	require.NotContains(t, fmt.Sprint(Select()), "remote.config")

	t.Setenv("CONFIG_SOURCE", "remote")
	require.Contains(t, fmt.Sprint(Select()), "remote.config")
}

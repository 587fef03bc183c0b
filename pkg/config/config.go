package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	backend     = "consul"
	backendAddr = "127.0.0.1:8500"
	backendPath = "seeker/development"
	configType  = "yaml"
)

type Range struct {
	Min int64 `mapstructure:"MIN"`
	Max int64 `mapstructure:"MAX"`
}

func (r Range) Validate() error {
	if r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("invalid range [%d, %d]", r.Min, r.Max)
	}
	return nil
}

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppName string `mapstructure:"APP_NAME"`
	NodeID  int64  `mapstructure:"NODE_ID"`
	TLS     struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Lock struct {
		Backend string        `mapstructure:"BACKEND"`
		TTL     time.Duration `mapstructure:"TTL"`
	} `mapstructure:"LOCK"`
	Scheduler struct {
		Mode    string        `mapstructure:"MODE"`
		Period  time.Duration `mapstructure:"PERIOD"`
		Cron    string        `mapstructure:"CRON"`
		Workers int           `mapstructure:"WORKERS"`
	} `mapstructure:"SCHEDULER"`
	Notify struct {
		Mode string `mapstructure:"MODE"`
	} `mapstructure:"NOTIFY"`
	Game Game `mapstructure:"GAME"`
}

// Game is the balancing surface. It is read through Holder at use time so a
// reload takes effect on the next settlement.
type Game struct {
	Duel struct {
		LifeTime       time.Duration `mapstructure:"LIFETIME"`
		Price          int64         `mapstructure:"PRICE"`
		PayoutToWinner bool          `mapstructure:"PAYOUT_TO_WINNER"`
	} `mapstructure:"DUEL"`
	PersonalQuest struct {
		SuccessProbability float64 `mapstructure:"SUCCESS_PROBABILITY"`
		Reward             Range   `mapstructure:"REWARD"`
	} `mapstructure:"PERSONAL_QUEST"`
	Raid struct {
		Reward Range `mapstructure:"REWARD"`
	} `mapstructure:"RAID"`
	Battle struct {
		MaxRounds   int   `mapstructure:"MAX_ROUNDS"`
		WinExpBonus int64 `mapstructure:"WIN_EXP_BONUS"`
	} `mapstructure:"BATTLE"`
}

func (g Game) Validate() error {
	if g.Duel.Price < 0 {
		return fmt.Errorf("GAME.DUEL.PRICE must be >= 0")
	}
	if g.Duel.LifeTime <= 0 {
		return fmt.Errorf("GAME.DUEL.LIFETIME must be > 0")
	}
	if p := g.PersonalQuest.SuccessProbability; p < 0 || p > 1 {
		return fmt.Errorf("GAME.PERSONAL_QUEST.SUCCESS_PROBABILITY must be in [0, 1]")
	}
	if err := g.PersonalQuest.Reward.Validate(); err != nil {
		return fmt.Errorf("GAME.PERSONAL_QUEST.REWARD: %w", err)
	}
	if err := g.Raid.Reward.Validate(); err != nil {
		return fmt.Errorf("GAME.RAID.REWARD: %w", err)
	}
	return nil
}

var Module = fx.Module("config", fx.Provide(LoadConfig), fx.Invoke(Watch))
var RemoteModule = fx.Module("remote.config", fx.Provide(LoadRemote), fx.Invoke(WatchRemote))

// Select returns RemoteModule when CONFIG_SOURCE=remote and Module otherwise.
func Select() fx.Option {
	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "remote") {
		return RemoteModule
	}
	return Module
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "seeker-engine")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)
	v.SetDefault("LOCK.BACKEND", "redis")
	v.SetDefault("LOCK.TTL", 5*time.Minute)
	v.SetDefault("SCHEDULER.MODE", "ticker")
	v.SetDefault("SCHEDULER.PERIOD", time.Minute)
	v.SetDefault("SCHEDULER.CRON", "@every 1m")
	v.SetDefault("SCHEDULER.WORKERS", 4)
	v.SetDefault("NOTIFY.MODE", "task")
	v.SetDefault("GAME.DUEL.LIFETIME", 10*time.Minute)
	v.SetDefault("GAME.DUEL.PRICE", 3)
	v.SetDefault("GAME.PERSONAL_QUEST.SUCCESS_PROBABILITY", 0.5)
	v.SetDefault("GAME.PERSONAL_QUEST.REWARD.MIN", 5)
	v.SetDefault("GAME.PERSONAL_QUEST.REWARD.MAX", 15)
	v.SetDefault("GAME.RAID.REWARD.MIN", 10)
	v.SetDefault("GAME.RAID.REWARD.MAX", 30)
	v.SetDefault("GAME.BATTLE.MAX_ROUNDS", 50)
	v.SetDefault("GAME.BATTLE.WIN_EXP_BONUS", 20)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

type Loaded struct {
	fx.Out
	Config *Config
	Holder *Holder
	Viper  *viper.Viper
}

func LoadConfig() (Loaded, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Loaded{}, fmt.Errorf("read config: %w", err)
		}
		zap.L().Warn("config.yaml not found, using defaults and environment")
	}

	cfg, err := decode(v)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{Config: cfg, Holder: NewHolder(cfg), Viper: v}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Game.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRemote reads the same layout from a viper remote provider. WatchRemote
// keeps polling it.
func LoadRemote() (Loaded, error) {
	if v, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		backend = v
	}
	if v, ok := os.LookupEnv("REMOTE_CONFIG_ADDR"); ok {
		backendAddr = v
	}
	if v, ok := os.LookupEnv("REMOTE_CONFIG_PATH"); ok {
		backendPath = v
	}

	v := newViper()
	if err := v.AddRemoteProvider(backend, backendAddr, backendPath); err != nil {
		return Loaded{}, err
	}
	if err := v.ReadRemoteConfig(); err != nil {
		return Loaded{}, err
	}

	cfg, err := decode(v)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{Config: cfg, Holder: NewHolder(cfg), Viper: v}, nil
}

const remotePollInterval = 5 * time.Second

// WatchRemote polls the remote provider until the app stops.
func WatchRemote(lc fx.Lifecycle, v *viper.Viper, h *Holder) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				pollRemote(ctx, remotePollInterval, v.WatchRemoteConfig, v, h)
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
}

// pollRemote refreshes v with fetch every interval and stores each valid
// result in h. A failed fetch or an invalid config keeps the previous one.
func pollRemote(ctx context.Context, interval time.Duration, fetch func() error, v *viper.Viper, h *Holder) {
	for {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}

		if err := fetch(); err != nil {
			zap.L().Error("unable to read remote config", zap.Error(err))
			continue
		}
		next, err := decode(v)
		if err != nil {
			zap.L().Error("rejected remote config", zap.Error(err))
			continue
		}
		h.Store(next)
	}
}

// Holder serves the most recent valid configuration.
type Holder struct {
	v atomic.Pointer[Config]
}

func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.Store(cfg)
	return h
}

func (h *Holder) Load() *Config {
	return h.v.Load()
}

func (h *Holder) Store(cfg *Config) {
	if cfg != nil {
		h.v.Store(cfg)
	}
}

// Watch reloads the config file on change. Invalid files are rejected and
// the previous config stays in place.
func Watch(v *viper.Viper, h *Holder) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		next, err := decode(v)
		if err != nil {
			zap.L().Error("rejected config reload", zap.String("file", e.Name), zap.Error(err))
			return
		}
		h.Store(next)
		zap.L().Info("config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()
}

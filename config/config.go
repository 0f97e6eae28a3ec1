package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
		Mode string // gin: debug | release | test
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret      string
		ExpireHours int
	}
	Storage struct {
		Driver string // memory | redis | postgres
	}
	Game struct {
		SmallBlind      int64
		BigBlind        int64
		StartingBalance int64
		BotCount        int
		HumanChair      int
		BotDelay        time.Duration
		Mode            string
		Seed            int64 // 0 表示按时间
		TournamentTTL   time.Duration
	}
	Ledger struct {
		RPCURL         string `mapstructure:"rpcUrl"`
		PrivateKey     string
		ChainID        int64
		PollInterval   time.Duration
		PollRetries    int
		ResolveTimeout time.Duration
	}
}

var C Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expireHours", 24)
	v.SetDefault("storage.driver", "memory")

	v.SetDefault("game.smallBlind", 10)
	v.SetDefault("game.bigBlind", 20)
	v.SetDefault("game.startingBalance", 1000)
	v.SetDefault("game.botCount", 2)
	v.SetDefault("game.humanChair", 0)
	v.SetDefault("game.botDelay", 1500*time.Millisecond)
	v.SetDefault("game.mode", "normal")
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.tournamentTTL", 6*time.Hour)

	v.SetDefault("ledger.rpcUrl", "")
	v.SetDefault("ledger.privateKey", "")
	v.SetDefault("ledger.chainId", 0)
	v.SetDefault("ledger.pollInterval", 2*time.Second)
	v.SetDefault("ledger.pollRetries", 60)
	v.SetDefault("ledger.resolveTimeout", 2*time.Minute)
}

// Load 读取 YAML；path 为空时只用默认值和环境变量（COOLERPOKER_GAME_BOTCOUNT 之类）
func Load(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COOLERPOKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := c.validate(); err != nil {
		return err
	}
	C = c
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	switch c.Storage.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Game.SmallBlind <= 0 || c.Game.BigBlind < c.Game.SmallBlind {
		errs = append(errs, fmt.Errorf("bad blinds %d/%d", c.Game.SmallBlind, c.Game.BigBlind))
	}
	if c.Ledger.RPCURL != "" && c.Ledger.PrivateKey == "" {
		errs = append(errs, errors.New("ledger.privateKey is required when ledger.rpcUrl is set"))
	}
	return errors.Join(errs...)
}

// LedgerEnabled 配置了 RPC 才走账本结算
func (c *Config) LedgerEnabled() bool {
	return c.Ledger.RPCURL != ""
}

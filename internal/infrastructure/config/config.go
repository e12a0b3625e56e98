package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// InstrumentSpec is one [[instruments]] entry. Either kind selects a
// reference table for the symbol, or security_id/segment pin the
// instrument explicitly.
type InstrumentSpec struct {
	Symbol     string `toml:"symbol"`
	Kind       string `toml:"kind"`
	SecurityID string `toml:"security_id"`
	Segment    string `toml:"segment"`
}

type Config struct {
	App struct {
		FlushIntervalSec int `toml:"flush_interval_sec"`
		ShutdownGraceSec int `toml:"shutdown_grace_sec"`
	} `toml:"app"`

	Feed struct {
		WsURL             string   `toml:"ws_url"`
		SilenceTimeoutSec int      `toml:"silence_timeout_sec"`
		PingIntervalSec   int      `toml:"ping_interval_sec"`
		SubscribeBatch    int      `toml:"subscribe_batch"`
		BackoffBaseMs     int      `toml:"backoff_base_ms"`
		BackoffMaxMs      int      `toml:"backoff_max_ms"`
		BackoffJitter     *float64 `toml:"backoff_jitter"` // nil = default; an explicit 0 disables jitter
		MaxFailures       int      `toml:"max_failures"`   // consecutive failures before degraded; 0 = never
	} `toml:"feed"`

	Telegram struct {
		Enabled bool   `toml:"enabled"`
		Chat    string `toml:"chat"` // numeric id or @channel; TELEGRAM_CHAT_ID overrides
	} `toml:"telegram"`

	Channel struct {
		MaxAttempts int `toml:"max_attempts"`
		RetryBaseMs int `toml:"retry_base_ms"`
	} `toml:"channel"`

	Storage struct {
		SQLitePath  string `toml:"sqlite_path"` // empty disables
		RedisAddr   string `toml:"redis_addr"`
		RedisPrefix string `toml:"redis_prefix"`
		RedisTTLSec int    `toml:"redis_ttl_sec"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`

	Instruments []InstrumentSpec `toml:"instruments"`

	// Credentials come from the environment only, never the file.
	Credentials Credentials `toml:"-"`
}

type Credentials struct {
	DhanClientID    string
	DhanAccessToken string
	TelegramToken   string
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	loadEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnv(cfg *Config) {
	cfg.Credentials.DhanClientID = strings.TrimSpace(os.Getenv("DHAN_CLIENT_ID"))
	// DHAN_TOKEN accepted as a fallback name
	cfg.Credentials.DhanAccessToken = strings.TrimSpace(os.Getenv("DHAN_ACCESS_TOKEN"))
	if cfg.Credentials.DhanAccessToken == "" {
		cfg.Credentials.DhanAccessToken = strings.TrimSpace(os.Getenv("DHAN_TOKEN"))
	}
	cfg.Credentials.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if chat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); chat != "" {
		cfg.Telegram.Chat = chat
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.FlushIntervalSec <= 0 {
		cfg.App.FlushIntervalSec = 5
	}
	if cfg.App.ShutdownGraceSec <= 0 {
		cfg.App.ShutdownGraceSec = 5
	}
	if strings.TrimSpace(cfg.Feed.WsURL) == "" {
		cfg.Feed.WsURL = "wss://api-feed.dhan.co"
	}
	if cfg.Feed.SilenceTimeoutSec <= 0 {
		cfg.Feed.SilenceTimeoutSec = 30
	}
	if cfg.Feed.PingIntervalSec <= 0 {
		cfg.Feed.PingIntervalSec = 10
	}
	if cfg.Feed.SubscribeBatch <= 0 {
		cfg.Feed.SubscribeBatch = 100
	}
	if cfg.Feed.BackoffBaseMs <= 0 {
		cfg.Feed.BackoffBaseMs = 1000
	}
	if cfg.Feed.BackoffMaxMs <= 0 {
		cfg.Feed.BackoffMaxMs = 60000
	}
	if cfg.Feed.BackoffJitter == nil {
		jitter := 0.2
		cfg.Feed.BackoffJitter = &jitter
	}
	if cfg.Channel.MaxAttempts <= 0 {
		cfg.Channel.MaxAttempts = 3
	}
	if cfg.Channel.RetryBaseMs <= 0 {
		cfg.Channel.RetryBaseMs = 1000
	}
	if strings.TrimSpace(cfg.Storage.RedisPrefix) == "" {
		cfg.Storage.RedisPrefix = "ltprelay"
	}
}

func validate(cfg *Config) error {
	if len(cfg.Instruments) == 0 {
		return errors.New("instruments list is empty")
	}
	for _, inst := range cfg.Instruments {
		if strings.TrimSpace(inst.Symbol) == "" {
			return errors.New("instrument with empty symbol")
		}
	}
	if cfg.Credentials.DhanClientID == "" || cfg.Credentials.DhanAccessToken == "" {
		return errors.New("DHAN_CLIENT_ID / DHAN_ACCESS_TOKEN not set")
	}
	if cfg.Telegram.Enabled {
		if cfg.Credentials.TelegramToken == "" {
			return errors.New("telegram enabled but TELEGRAM_BOT_TOKEN not set")
		}
		if strings.TrimSpace(cfg.Telegram.Chat) == "" {
			return errors.New("telegram enabled but no chat configured")
		}
	}
	return nil
}

// Duration accessors, so callers do not repeat the unit conversions.

func (c *Config) FlushInterval() time.Duration  { return time.Duration(c.App.FlushIntervalSec) * time.Second }
func (c *Config) ShutdownGrace() time.Duration  { return time.Duration(c.App.ShutdownGraceSec) * time.Second }
func (c *Config) SilenceTimeout() time.Duration { return time.Duration(c.Feed.SilenceTimeoutSec) * time.Second }
func (c *Config) PingInterval() time.Duration   { return time.Duration(c.Feed.PingIntervalSec) * time.Second }
func (c *Config) BackoffBase() time.Duration    { return time.Duration(c.Feed.BackoffBaseMs) * time.Millisecond }
func (c *Config) BackoffMax() time.Duration     { return time.Duration(c.Feed.BackoffMaxMs) * time.Millisecond }
func (c *Config) RetryBase() time.Duration      { return time.Duration(c.Channel.RetryBaseMs) * time.Millisecond }

func (c *Config) BackoffJitter() float64 {
	if c.Feed.BackoffJitter == nil {
		return 0.2
	}
	return *c.Feed.BackoffJitter
}
func (c *Config) RedisTTL() time.Duration       { return time.Duration(c.Storage.RedisTTLSec) * time.Second }

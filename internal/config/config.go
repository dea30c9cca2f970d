// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Mode     string `yaml:"mode"` // polling | webhook (future)
	Username string `yaml:"username"`
	Workers  int    `yaml:"workers"` // update workers
	AdminID  string `yaml:"admin_id"`
	Language string `yaml:"language"`
	// ClaimAdmin lets the first sender checked for admin rights become the admin when no
	// admin id is configured anywhere.
	ClaimAdmin bool `yaml:"claim_admin"`
}

type LogConfig struct {
	Level     string `yaml:"level"`     // trace|debug|info|warn|error
	Format    string `yaml:"format"`    // json|console
	Sampling  bool   `yaml:"sampling"`  // enable sampling in prod
	Persist   bool   `yaml:"persist"`   // mirror log lines into the log repository
	Retention int    `yaml:"retention"` // max persisted entries
}

type AdminConfig struct {
	Port       int           `yaml:"port"`
	APIKey     string        `yaml:"api_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // empty selects the in-memory store
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type HealthConfig struct {
	IntervalMinutes int           `yaml:"interval_minutes"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
}

type RateLimitConfig struct {
	Backend string        `yaml:"backend"` // memory | redis
	Window  time.Duration `yaml:"window"`
	Limit   int           `yaml:"limit"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Health    HealthConfig    `yaml:"health"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	// DetailedLogging seeds AdminConfig.DetailedLogging on first start.
	DetailedLogging bool `yaml:"detailed_logging"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads an optional .env file, the YAML file at path (a missing file is
// tolerated when the environment supplies the required values), then applies env
// overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.DetailedLogging = true
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required (or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.RateLimit.Backend == "redis" && cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required for the redis rate limit backend")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setStr(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Bot.AdminID, "ADMIN_TELEGRAM_ID")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Admin.APIKey, "ADMIN_API_KEY")

	if v := os.Getenv("HEALTH_CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Health.IntervalMinutes = n
		}
	}
	if v := os.Getenv("DETAILED_LOGGING"); v != "" {
		cfg.DetailedLogging = v != "false"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Retention <= 0 {
		cfg.Log.Retention = 1000
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Health.IntervalMinutes <= 0 {
		cfg.Health.IntervalMinutes = 5
	}
	if cfg.Health.ProbeTimeout <= 0 {
		cfg.Health.ProbeTimeout = 10 * time.Second
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 30
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

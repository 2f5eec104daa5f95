package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is not set")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")
	ErrUnknownDriver      = errors.New("unknown STORE_DRIVER")
)

// Config contains server configuration parameters.
type Config struct {
	AppPort       string `env:"APP_PORT" envDefault:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
	JWTSecret     string `env:"JWT_SECRET"`

	Log       Log
	Database  Database
	Redis     Redis `envPrefix:"REDIS_"`
	RateLimit RateLimit
	Notify    Notify
	Timers    Timers
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	JSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Database selects the user document store.
type Database struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"postgres"`
	URL            string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
}

// Redis is optional. Without it rate limiting falls back to process memory
// and document changes are only fanned out inside this process.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type RateLimit struct {
	API            int           `env:"API_RATE_LIMIT" envDefault:"60"`
	APIWindow      time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	Referral       int           `env:"REFERRAL_RATE_LIMIT" envDefault:"5"`
	ReferralWindow time.Duration `env:"REFERRAL_RATE_WINDOW" envDefault:"1m"`
}

// Notify configures operator notification sinks. Every sink is optional.
type Notify struct {
	DiscordWebhookURL string        `env:"DISCORD_WEBHOOK_URL"`
	TelegramBotToken  string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID    int64         `env:"TELEGRAM_CHAT_ID"`
	TelegramAdminIDs  []int64       `env:"TELEGRAM_ADMIN_IDS" envSeparator:","`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic        string        `env:"KAFKA_TOPIC" envDefault:"operator-events"`
	Timeout           time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

type Timers struct {
	Tick  time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	Sweep time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds the config from the current environment.
func Parse() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return ErrMissingDatabaseURL
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	return nil
}

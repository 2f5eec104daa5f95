package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/illyrian")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, 60, cfg.RateLimit.API)
	assert.Equal(t, time.Minute, cfg.RateLimit.APIWindow)
	assert.Equal(t, 5, cfg.RateLimit.Referral)
	assert.Equal(t, "operator-events", cfg.Notify.KafkaTopic)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, time.Second, cfg.Timers.Tick)
	assert.Equal(t, time.Minute, cfg.Timers.Sweep)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name: "memory driver without database url",
			envVars: map[string]string{
				"STORE_DRIVER": "memory",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, DriverMemory, cfg.Database.Driver)
				assert.Empty(t, cfg.Database.URL)
			},
		},
		{
			name: "redis and rate limits",
			envVars: map[string]string{
				"STORE_DRIVER":         "memory",
				"REDIS_ADDR":           "localhost:6379",
				"REDIS_DB":             "3",
				"REFERRAL_RATE_LIMIT":  "2",
				"REFERRAL_RATE_WINDOW": "30s",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, 3, cfg.Redis.DB)
				assert.Equal(t, 2, cfg.RateLimit.Referral)
				assert.Equal(t, 30*time.Second, cfg.RateLimit.ReferralWindow)
			},
		},
		{
			name: "notification sinks",
			envVars: map[string]string{
				"STORE_DRIVER":        "memory",
				"DISCORD_WEBHOOK_URL": "https://discord.example/hook",
				"TELEGRAM_CHAT_ID":    "-100123",
				"TELEGRAM_ADMIN_IDS":  "11,22",
				"KAFKA_BROKERS":       "k1:9092,k2:9092",
				"NOTIFY_TIMEOUT":      "3s",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "https://discord.example/hook", cfg.Notify.DiscordWebhookURL)
				assert.Equal(t, int64(-100123), cfg.Notify.TelegramChatID)
				assert.Equal(t, []int64{11, 22}, cfg.Notify.TelegramAdminIDs)
				assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notify.KafkaBrokers)
				assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Parse()
			require.NoError(t, err)
			tt.expected(cfg)
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{
			name:    "missing jwt secret",
			envVars: map[string]string{"STORE_DRIVER": "memory"},
			wantErr: ErrMissingJWTSecret,
		},
		{
			name:    "postgres without url",
			envVars: map[string]string{"JWT_SECRET": "s"},
			wantErr: ErrMissingDatabaseURL,
		},
		{
			name:    "unknown driver",
			envVars: map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "firestore"},
			wantErr: ErrUnknownDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("DATABASE_URL", "")
			t.Setenv("STORE_DRIVER", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

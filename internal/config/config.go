package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Commands     CommandConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the shared secret used to verify backend-issued tokens.
type AuthConfig struct {
	JWTSecret string
}

// SLAConfig tunes deadline computation and the periodic sweep.
type SLAConfig struct {
	Timezone                string
	WarningMinutes          int
	SweepSchedule           string
	SweepLookaheadMinutes   int
	SweepTimeoutSeconds     int
	NotificationDedupeHours int
	CronSecret              string
}

// CommandConfig tunes chat slash-command handling.
type CommandConfig struct {
	LockSeconds               int
	GeolocationTimeoutSeconds int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	EmailFrom        string
	WebhookURL       string
	WebhookSecret    string
	TelegramBotToken string
	TelegramChatID   int64
	PublicBaseURL    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	var telegramChatID int64
	if raw := os.Getenv("NOTIFY_TELEGRAM_CHAT_ID"); raw != "" {
		telegramChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFY_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	tz := getEnv("SLA_TIMEZONE", "Europe/Rome")
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SLA_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		SLA: SLAConfig{
			Timezone:                tz,
			WarningMinutes:          getEnvAsInt("SLA_WARNING_MINUTES", 60),
			SweepSchedule:           getEnv("SLA_SWEEP_SCHEDULE", "@every 15m"),
			SweepLookaheadMinutes:   getEnvAsInt("SLA_SWEEP_LOOKAHEAD_MINUTES", 120),
			SweepTimeoutSeconds:     getEnvAsInt("SLA_SWEEP_TIMEOUT_SECONDS", 60),
			NotificationDedupeHours: getEnvAsInt("SLA_NOTIFICATION_DEDUPE_HOURS", 72),
			CronSecret:              os.Getenv("CRON_SECRET"),
		},
		Commands: CommandConfig{
			LockSeconds:               getEnvAsInt("COMMAND_LOCK_SECONDS", 30),
			GeolocationTimeoutSeconds: getEnvAsInt("GEOLOCATION_TIMEOUT_SECONDS", 10),
		},
		Notification: NotificationConfig{
			EmailFrom:        getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret:    os.Getenv("NOTIFY_WEBHOOK_SECRET"),
			TelegramBotToken: os.Getenv("NOTIFY_TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   telegramChatID,
			PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the business time zone. Load already validated it.
func (s SLAConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WarningWindow is the span before a deadline classified as warning.
func (s SLAConfig) WarningWindow() time.Duration {
	if s.WarningMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(s.WarningMinutes) * time.Minute
}

// Lookahead is how far ahead of now the sweep searches for deadlines.
func (s SLAConfig) Lookahead() time.Duration {
	if s.SweepLookaheadMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(s.SweepLookaheadMinutes) * time.Minute
}

// SweepTimeout bounds a single sweep run.
func (s SLAConfig) SweepTimeout() time.Duration {
	if s.SweepTimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepTimeoutSeconds) * time.Second
}

// DedupeTTL is how long a sent SLA notification suppresses repeats.
func (s SLAConfig) DedupeTTL() time.Duration {
	if s.NotificationDedupeHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(s.NotificationDedupeHours) * time.Hour
}

// LockTTL is the lifetime of the per-user command lock.
func (c CommandConfig) LockTTL() time.Duration {
	if c.LockSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LockSeconds) * time.Second
}

// GeolocationTimeout bounds how long a command waits for a position.
func (c CommandConfig) GeolocationTimeout() time.Duration {
	if c.GeolocationTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.GeolocationTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

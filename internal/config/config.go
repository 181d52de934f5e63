package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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
	Mailbox      MailboxConfig
	Support      SupportConfig
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

// AuthConfig defines token verification parameters for the in-app channel.
type AuthConfig struct {
	JWTSecret string
}

// MailboxConfig holds IMAP connection values for the inbound support
// mailbox. Host, Username and Password are required for the mail source
// adapter to start; when any of them is empty the adapter stays disabled.
type MailboxConfig struct {
	Host                string
	Port                int
	Username            string
	Password            string
	Folder              string
	TLS                 bool
	PollIntervalSeconds int
}

// SupportConfig drives ticket lifecycle and SLA behavior.
type SupportConfig struct {
	Enabled              bool
	SLAMinutes           int
	SweepIntervalSeconds int
	EscalationRecipients []string
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	slaMinutes := getEnvAsInt("SUPPORT_SLA_MINUTES", 120)
	if slaMinutes <= 0 {
		return nil, fmt.Errorf("SUPPORT_SLA_MINUTES must be positive, got %d", slaMinutes)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
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
		Mailbox: MailboxConfig{
			Host:                os.Getenv("SUPPORT_IMAP_HOST"),
			Port:                getEnvAsInt("SUPPORT_IMAP_PORT", 993),
			Username:            os.Getenv("SUPPORT_IMAP_USER"),
			Password:            os.Getenv("SUPPORT_IMAP_PASSWORD"),
			Folder:              getEnv("SUPPORT_IMAP_FOLDER", "INBOX"),
			TLS:                 getEnvAsBool("SUPPORT_IMAP_TLS", true),
			PollIntervalSeconds: getEnvAsInt("SUPPORT_POLL_INTERVAL_SECONDS", 60),
		},
		Support: SupportConfig{
			Enabled:              getEnvAsBool("SUPPORT_ENABLED", true),
			SLAMinutes:           slaMinutes,
			SweepIntervalSeconds: getEnvAsInt("SUPPORT_SWEEP_INTERVAL_SECONDS", 300),
			EscalationRecipients: getEnvAsList("SUPPORT_ESCALATION_RECIPIENTS"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "support@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addr returns the IMAP dial address.
func (m MailboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Configured reports whether the mailbox settings required for polling
// are present.
func (m MailboxConfig) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

// PollInterval returns the mailbox poll period.
func (m MailboxConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

// SLAWindow returns the duration after which an unanswered open ticket
// breaches its SLA.
func (s SupportConfig) SLAWindow() time.Duration {
	return time.Duration(s.SLAMinutes) * time.Minute
}

// SweepInterval returns the SLA monitor period.
func (s SupportConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
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

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Package config loads gymdesk settings from an optional .env file and
// GYMDESK_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GYMDESK"

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Email    EmailConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	OTel     OTelConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	LogLevel    string
	SeedDemo    bool
}

// IsProduction reports whether the app runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	SlowRequestMs   int
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the store driver.
type DatabaseConfig struct {
	Driver      string // sqlite or pgx
	DSN         string
	SlowQueryMs int
}

// EmailConfig holds the outbound mail identity. An empty ResendAPIKey
// selects the no-op sender.
type EmailConfig struct {
	ResendAPIKey string
	FromName     string
	FromAddress  string
	ReplyTo      string
	// RetryInterval is how often queued emails are retried; zero disables
	// the outbox worker.
	RetryInterval time.Duration
}

// RedisConfig holds calendar cache settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig holds the workflow trigger consumer settings.
type KafkaConfig struct {
	Brokers            []string
	ConsumerGroup      string
	ClientID           string
	CapacityFreedTopic string
	CancelledTopic     string
}

// Enabled reports whether any broker was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// AuthConfig holds request authentication and abuse limits.
type AuthConfig struct {
	JWTSecret          string
	TriggerKeyHash     string // bcrypt hash of the trigger shared secret
	CSRFKey            string // 64 hex characters
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// CSRFKeyBytes decodes CSRFKey. An empty key returns nil.
func (a AuthConfig) CSRFKeyBytes() ([]byte, error) {
	if a.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(a.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("csrf key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
	SampleRatio   float64
}

// Load reads ./.env when present, then the environment.
func Load() (*Config, error) {
	return LoadWithPath(".env")
}

// LoadWithPath reads the env-format file at path when it exists, then the
// environment. Environment variables win over file values.
// PRE: path may name a missing file
// POST: Returns a validated Config
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	setDefaults(v)

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "gymdesk")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_SEED_DEMO", true)

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("SERVER_SLOW_REQUEST_MS", 200)

	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "gymdesk.db")
	v.SetDefault("DATABASE_SLOW_QUERY_MS", 50)

	v.SetDefault("EMAIL_RESEND_API_KEY", "")
	v.SetDefault("EMAIL_FROM_NAME", "Gymdesk")
	v.SetDefault("EMAIL_FROM_ADDRESS", "bookings@gymdesk.example")
	v.SetDefault("EMAIL_REPLY_TO", "")
	v.SetDefault("EMAIL_RETRY_INTERVAL", "1m")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TTL", "5m")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "gymdesk-workflows")
	v.SetDefault("KAFKA_CLIENT_ID", "gymdesk")
	v.SetDefault("KAFKA_CAPACITY_FREED_TOPIC", "schedule.capacity_freed")
	v.SetDefault("KAFKA_CANCELLED_TOPIC", "schedule.cancelled")

	v.SetDefault("AUTH_JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("AUTH_TRIGGER_KEY_HASH", "")
	v.SetDefault("AUTH_CSRF_KEY", "")
	v.SetDefault("AUTH_SECURE_COOKIES", false)
	v.SetDefault("AUTH_TRUSTED_ORIGINS", "")
	v.SetDefault("AUTH_RATE_LIMIT_PER_SECOND", 10.0)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 20)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "gymdesk")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.LogLevel = v.GetString("APP_LOG_LEVEL")
	cfg.App.SeedDemo = v.GetBool("APP_SEED_DEMO")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.ShutdownTimeout = v.GetDuration("SERVER_SHUTDOWN_TIMEOUT")
	cfg.Server.SlowRequestMs = v.GetInt("SERVER_SLOW_REQUEST_MS")

	cfg.Database.Driver = v.GetString("DATABASE_DRIVER")
	cfg.Database.DSN = v.GetString("DATABASE_DSN")
	cfg.Database.SlowQueryMs = v.GetInt("DATABASE_SLOW_QUERY_MS")

	cfg.Email.ResendAPIKey = v.GetString("EMAIL_RESEND_API_KEY")
	cfg.Email.FromName = v.GetString("EMAIL_FROM_NAME")
	cfg.Email.FromAddress = v.GetString("EMAIL_FROM_ADDRESS")
	cfg.Email.ReplyTo = v.GetString("EMAIL_REPLY_TO")
	cfg.Email.RetryInterval = v.GetDuration("EMAIL_RETRY_INTERVAL")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.TTL = v.GetDuration("REDIS_TTL")

	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ConsumerGroup = v.GetString("KAFKA_CONSUMER_GROUP")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.CapacityFreedTopic = v.GetString("KAFKA_CAPACITY_FREED_TOPIC")
	cfg.Kafka.CancelledTopic = v.GetString("KAFKA_CANCELLED_TOPIC")

	cfg.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	cfg.Auth.TriggerKeyHash = v.GetString("AUTH_TRIGGER_KEY_HASH")
	cfg.Auth.CSRFKey = v.GetString("AUTH_CSRF_KEY")
	cfg.Auth.SecureCookies = v.GetBool("AUTH_SECURE_COOKIES")
	cfg.Auth.TrustedOrigins = splitList(v.GetString("AUTH_TRUSTED_ORIGINS"))
	cfg.Auth.RateLimitPerSecond = v.GetFloat64("AUTH_RATE_LIMIT_PER_SECOND")
	cfg.Auth.RateLimitBurst = v.GetInt("AUTH_RATE_LIMIT_BURST")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	return cfg
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks ranges and, in production, that secrets were supplied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "pgx" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Email.FromAddress == "" {
		return errors.New("email from address is required")
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		return fmt.Errorf("otel sample ratio must be within [0,1], got %v", c.OTel.SampleRatio)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if _, err := c.Auth.CSRFKeyBytes(); err != nil {
		return err
	}
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == DefaultJWTSecret {
			return errors.New("jwt secret must be set in production")
		}
		if c.Auth.CSRFKey == "" {
			return errors.New("csrf key must be set in production")
		}
		if c.Auth.TriggerKeyHash == "" {
			return errors.New("trigger key hash must be set in production")
		}
	}
	return nil
}

// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// MinJWTSecretLength is the shortest accepted HMAC signing secret.
const MinJWTSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppPort    int    `env:"APP_PORT" envDefault:"8080"`
	AppVersion string `env:"APP_VERSION" envDefault:"dev"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Startup connection retries
	ConnectMaxElapsed time.Duration `env:"CONNECT_MAX_ELAPSED" envDefault:"30s"`

	// Access tokens
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty,unset"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitIPEnabled  bool `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPRPS      int  `env:"RATE_LIMIT_IP_RPS" envDefault:"20"`
	RateLimitIPBurst    int  `env:"RATE_LIMIT_IP_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://*.example.com")
	CORSAllowedOrigins   string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
	CORSAllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Background workers
	AnalyticsWorkerEnabled bool          `env:"ANALYTICS_WORKER_ENABLED" envDefault:"true"`
	AnalyticsBatchSize     int           `env:"ANALYTICS_BATCH_SIZE" envDefault:"500"`
	AnalyticsClaimIdle     time.Duration `env:"ANALYTICS_CLAIM_IDLE" envDefault:"30s"`
	MailerWorkerEnabled    bool          `env:"MAILER_WORKER_ENABLED" envDefault:"true"`
	MailerPollInterval     time.Duration `env:"MAILER_POLL_INTERVAL" envDefault:"5s"`
	AlertWorkerEnabled     bool          `env:"ALERT_WORKER_ENABLED" envDefault:"true"`
	AlertPollInterval      time.Duration `env:"ALERT_POLL_INTERVAL" envDefault:"1m"`

	// Outbound mail relay. Delivery is skipped while MailRelayURL is empty.
	MailRelayURL    string `env:"MAIL_RELAY_URL" envDefault:""`
	MailRelaySecret string `env:"MAIL_RELAY_SECRET,unset" envDefault:""`
	MailFrom        string `env:"MAIL_FROM" envDefault:"Hireline <no-reply@hireline.local>"`

	// Domain events. Events are discarded while KafkaBrokers is empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"hireline.events"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks constraints the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.AnalyticsBatchSize <= 0 || c.AnalyticsBatchSize > 10000 {
		errs = append(errs, errors.New("ANALYTICS_BATCH_SIZE must be between 1 and 10000"))
	}
	if c.MailRelayURL != "" && c.MailRelaySecret == "" {
		errs = append(errs, errors.New("MAIL_RELAY_SECRET is required when MAIL_RELAY_URL is set"))
	}
	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

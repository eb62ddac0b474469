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

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL,required,notEmpty"`
	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	SeedRolesOnStart bool   `env:"SEED_ROLES_ON_START" envDefault:"true"`

	// Cache (Redis)
	RedisURL      string `env:"REDIS_URL,required,notEmpty"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Access tokens
	JWTSecretKey           string `env:"JWT_SECRET_KEY"`
	JWTIssuer              string `env:"JWT_ISSUER" envDefault:"phishdrill"`
	JWTAudience            string `env:"JWT_AUDIENCE" envDefault:"phishdrill"`
	JWTExpirationInMinutes int    `env:"JWT_EXPIRATION_IN_MINUTES" envDefault:"60"`

	// Tracking links embedded in lures (e.g., https://go.phishdrill.io)
	TrackingBaseURL       string `env:"TRACKING_BASE_URL" envDefault:"http://localhost:8080"`
	DefaultLandingURL     string `env:"DEFAULT_LANDING_URL" envDefault:"http://localhost:8080/caught"`
	TrackingWorkerEnabled bool   `env:"TRACKING_WORKER_ENABLED" envDefault:"true"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting for credential and tracking endpoints
	AuthRateLimitEnabled     bool `env:"AUTH_RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRateLimitRPS         int  `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst       int  `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	TrackingRateLimitEnabled bool `env:"TRACKING_RATE_LIMIT_ENABLED" envDefault:"true"`
	TrackingRateLimitRPS     int  `env:"TRACKING_RATE_LIMIT_RPS" envDefault:"50"`
	TrackingRateLimitBurst   int  `env:"TRACKING_RATE_LIMIT_BURST" envDefault:"20"`

	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// TokenTTL is the access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationInMinutes) * time.Minute
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks settings env tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("%w: JWT_SECRET_KEY must be set", ErrInvalidConfig)
	}
	if c.IsProduction() && len(c.JWTSecretKey) < 32 {
		return fmt.Errorf("%w: JWT_SECRET_KEY must be at least 32 bytes in production", ErrInvalidConfig)
	}
	if c.JWTExpirationInMinutes <= 0 {
		return fmt.Errorf("%w: JWT_EXPIRATION_IN_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return fmt.Errorf("%w: JWT_ISSUER and JWT_AUDIENCE must be set", ErrInvalidConfig)
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst <= 0 {
		return fmt.Errorf("%w: auth rate limit must be positive", ErrInvalidConfig)
	}
	if c.TrackingRateLimitRPS <= 0 || c.TrackingRateLimitBurst <= 0 {
		return fmt.Errorf("%w: tracking rate limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// Load parses environment variables and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/abdullah0035/itip-sub000/pkg/config"
	"github.com/abdullah0035/itip-sub000/pkg/database"
)

// Config holds all configuration for the web binary.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"WEB_HTTP_PORT" envDefault:"3000"`

	// Backend API
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	// Session persistence. "redis" in production; "memory" for development
	// and tests.
	SessionStore string        `env:"SESSION_STORE" envDefault:"redis"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load web config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.SessionStore != "redis" && cfg.SessionStore != "memory" {
		return nil, fmt.Errorf("invalid session store %q", cfg.SessionStore)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}

// Redis returns the redis configuration for client construction.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

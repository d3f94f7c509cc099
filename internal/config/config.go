// Package config loads service configuration from the environment.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, parsed from environment
// variables. Call Sanitize after loading to apply guardrails.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Store selects the job store backend: memory, postgres or redis.
	Store       string `env:"STORE" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// Agent worker endpoint performing the actual browser automation.
	AgentURL   string `env:"AGENT_URL"`
	AgentToken string `env:"AGENT_TOKEN"`
	GeocodeURL string `env:"GEOCODE_URL"`

	DefaultModel string `env:"DEFAULT_MODEL" envDefault:"gpt-4.1"`

	// MaxConcurrent bounds in-flight agent runs (browser sessions).
	MaxConcurrent int64         `env:"MAX_CONCURRENT" envDefault:"2"`
	AgentTimeout  time.Duration `env:"AGENT_TIMEOUT" envDefault:"15m"`

	// RetentionTTL evicts terminal bookings after this age; zero keeps
	// them for the process (or store) lifetime.
	RetentionTTL      time.Duration `env:"RETENTION_TTL" envDefault:"24h"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"10m"`

	// Dashboard session keys, base64 (or a file path holding base64,
	// for secret mounts). Both empty disables the dashboard.
	CookieHashKey  string `env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize clamps values that would misbehave at runtime.
func (c *Config) Sanitize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = "memory"
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.AgentTimeout < 0 {
		c.AgentTimeout = 0
	}
	if c.RetentionTTL < 0 {
		c.RetentionTTL = 0
	}
	if c.RetentionInterval < time.Minute {
		c.RetentionInterval = time.Minute
	}
	c.AgentURL = strings.TrimRight(strings.TrimSpace(c.AgentURL), "/")
}

// Validate checks what the server command needs up front.
func (c Config) Validate() error {
	switch c.Store {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("invalid STORE %q (want memory, postgres or redis)", c.Store)
	}
	if c.Store == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL required when STORE=postgres")
	}
	if c.AgentURL == "" {
		return fmt.Errorf("AGENT_URL is required")
	}
	return nil
}

// DashboardEnabled reports whether the operator dashboard can run: it
// needs session keys and the user table, which lives in Postgres.
func (c Config) DashboardEnabled() bool {
	return c.CookieHashKey != "" && c.CookieBlockKey != "" && c.DatabaseURL != ""
}

// CookieKeys decodes the session keys.
func (c Config) CookieKeys() (hash, block []byte, err error) {
	hash, err = decodeKey(c.CookieHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	block, err = decodeKey(c.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}
	return hash, block, nil
}

func decodeKey(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		// allow pointing to a file path for k8s secret mounts
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

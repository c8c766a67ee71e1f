package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// DevBypass swaps the live backend for the seeded in-memory store.
	DevBypass     bool   `envconfig:"DEV_BYPASS" default:"false"`
	DevActiveUser string `envconfig:"DEV_ACTIVE_USER"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	RateLimitMaxKeys      int           `envconfig:"RATE_LIMIT_MAX_KEYS" default:"10000"`
	SensitiveRateLimit    int           `envconfig:"SENSITIVE_RATE_LIMIT" default:"10"`
	SensitiveRateWindow   time.Duration `envconfig:"SENSITIVE_RATE_WINDOW" default:"1m"`
	GlobalRateLimitPerMin int           `envconfig:"GLOBAL_RATE_LIMIT_PER_MIN" default:"300"`

	JobsEnabled       bool `envconfig:"JOBS_ENABLED" default:"false"`
	WorkerConcurrency int  `envconfig:"WORKER_CONCURRENCY" default:"5"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.UseParityStore() {
		if c.IsProduction() {
			return errors.New("config: DEV_BYPASS must not be enabled in production")
		}
	} else {
		if c.PGDSN == "" {
			return errors.New("config: PG_DSN must be provided unless DEV_BYPASS is set")
		}
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be provided for sessions")
		}
		if c.SessionSecret == "" {
			return errors.New("config: SESSION_SECRET must be provided")
		}
	}
	if c.JobsEnabled && c.RedisAddr == "" {
		return errors.New("config: JOBS_ENABLED requires REDIS_ADDR")
	}
	if c.SensitiveRateLimit <= 0 || c.SensitiveRateWindow <= 0 {
		return errors.New("config: sensitive rate limit and window must be positive")
	}
	if c.RateLimitMaxKeys <= 0 {
		return errors.New("config: RATE_LIMIT_MAX_KEYS must be positive")
	}
	return nil
}

// UseParityStore reports whether handlers run against the in-memory store.
func (c *Config) UseParityStore() bool {
	return c != nil && c.DevBypass
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

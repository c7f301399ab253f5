package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/loginbot/core/cache"
	coreconfig "github.com/m3rciful/loginbot/core/config"
	coredatabase "github.com/m3rciful/loginbot/core/database"
)

const (
	// SessionBackendMemory keeps conversations in process memory.
	SessionBackendMemory = "memory"
	// SessionBackendRedis keeps conversations in Redis with key expiry.
	SessionBackendRedis = "redis"

	defaultAppName       = "JamolStroy"
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = time.Minute
	defaultEmailDomain   = "telegram.local"
)

// AppConfig describes the web application the bot links to.
type AppConfig struct {
	Name    string `yaml:"name" envconfig:"APP_NAME"`
	BaseURL string `yaml:"base_url" envconfig:"APP_URL"`
}

// SessionConfig controls conversation state storage.
type SessionConfig struct {
	Backend       string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
}

// AuthConfig controls auth identity provisioning. An empty DatabaseURL disables it.
type AuthConfig struct {
	DatabaseURL string `yaml:"database_url" envconfig:"AUTH_DATABASE_URL"`
	EmailDomain string `yaml:"email_domain" envconfig:"AUTH_EMAIL_DOMAIN"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	App      AppConfig           `yaml:"app"`
	Database coredatabase.Config `yaml:"database"`
	Redis    cache.Config        `yaml:"redis"`
	Session  SessionConfig       `yaml:"session"`
	Auth     AuthConfig          `yaml:"auth"`
}

// CoreConfig returns the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.App.Name = strings.TrimSpace(cfg.App.Name)
	if cfg.App.Name == "" {
		cfg.App.Name = defaultAppName
	}
	base := strings.TrimSpace(cfg.App.BaseURL)
	if base == "" {
		return fmt.Errorf("app.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("app.base_url must be an absolute http(s) URL, got %q", base)
	}
	cfg.App.BaseURL = base

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch backend {
	case "":
		backend = SessionBackendMemory
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(cfg.Redis.URL) == "" {
			return fmt.Errorf("redis.url is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = defaultSessionTTL
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = defaultSweepInterval
	}

	cfg.Auth.EmailDomain = strings.TrimPrefix(strings.TrimSpace(cfg.Auth.EmailDomain), "@")
	if cfg.Auth.EmailDomain == "" {
		cfg.Auth.EmailDomain = defaultEmailDomain
	}
	return nil
}

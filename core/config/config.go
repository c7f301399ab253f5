package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig carries the bot token and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// 0 selects the poller default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies the webhook endpoint.
// URL is the public address registered with Telegram; Listen/Port bind the local HTTP server
// and Path is the route the update endpoint is mounted on.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	Path   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
}

// LoggingConfig configures core/logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile is "debug", "dev" or "prod"; it picks the default format.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// DefaultWebhookPath is used when webhook.path is empty.
const DefaultWebhookPath = "/telegram/webhook"

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

// RateLimitConfig sets the minimum interval between one user's updates.
// ExcludeUpdates lists update kinds ("callback", "message") that bypass it.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load is Decode followed by Normalize for a bare core config.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path and then overlays environment variables.
// dst must be a pointer to a struct; bot configs embed Config to share the core keys.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates required keys and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram token is required")
	}
	for _, step := range []func(*Config) error{normalizeRunMode, normalizeWebhookPath, normalizeRateLimit} {
		if err := step(cfg); err != nil {
			return err
		}
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling":
		mode = RunModeLongpoll
	}
	switch mode {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return errors.New("webhook.url is required in webhook mode")
		}
		if cfg.Webhook.Port <= 0 {
			return errors.New("webhook.port must be > 0 in webhook mode")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = mode
	return nil
}

func normalizeWebhookPath(cfg *Config) error {
	p := strings.TrimSpace(cfg.Webhook.Path)
	switch {
	case p == "":
		p = DefaultWebhookPath
	case p[0] != '/':
		p = "/" + p
	}
	cfg.Webhook.Path = p
	return nil
}

func normalizeRateLimit(cfg *Config) error {
	if cfg.RateLimit.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	kept := cfg.RateLimit.ExcludeUpdates[:0]
	for _, v := range cfg.RateLimit.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "":
			continue
		case UpdateCallback, UpdateMessage:
			kept = append(kept, kind)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	cfg.RateLimit.ExcludeUpdates = kept
	return nil
}

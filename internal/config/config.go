package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SW_DB_MAX_CONNS" default:"8"`

	BotToken  string `envconfig:"TG_BOT_TOKEN" default:""`
	ChannelID string `envconfig:"TG_CHANNEL_ID" default:""`

	PublishIntervalSec int    `envconfig:"PUBLISH_INTERVAL_SEC" default:"300"`
	PublishMaxPerHour  int    `envconfig:"PUBLISH_MAX_PER_HOUR" default:"8"`
	PublishMaxPerDay   int    `envconfig:"PUBLISH_MAX_PER_DAY" default:"40"`
	PublishQuietHours  string `envconfig:"PUBLISH_QUIET_HOURS" default:""`
	Timezone           string `envconfig:"TZ" default:"Europe/Moscow"`
	DedupWindowDays    int    `envconfig:"DEDUP_WINDOW_DAYS" default:"3"`

	AlertEnabled   bool     `envconfig:"ALERT_ENABLED" default:"true"`
	AlertNewsMin1h *float64 `envconfig:"ALERT_NEWS_MIN_1H"`
	AlertQueueMax  *float64 `envconfig:"ALERT_QUEUE_MAX"`
	AlertSentMin24 *float64 `envconfig:"ALERT_SENT_MIN_24H"`
	AlertChatID    string   `envconfig:"ALERT_CHAT_ID" default:""`

	DigestDefaultLimit int `envconfig:"DIGEST_DEFAULT_LIMIT" default:"25"`
	DigestThreadChunk  int `envconfig:"DIGEST_THREAD_CHUNK" default:"5"`

	AdminUser         string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SW_DB_MIN_CONNS (%d) cannot exceed SW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.PublishIntervalSec < 1 {
		return fmt.Errorf("PUBLISH_INTERVAL_SEC must be >= 1")
	}
	if c.PublishMaxPerHour < 1 {
		return fmt.Errorf("PUBLISH_MAX_PER_HOUR must be >= 1")
	}
	if c.PublishMaxPerDay < 1 {
		return fmt.Errorf("PUBLISH_MAX_PER_DAY must be >= 1")
	}
	if c.DedupWindowDays < 0 {
		return fmt.Errorf("DEDUP_WINDOW_DAYS must be >= 0")
	}
	if _, _, err := ParseQuietHours(c.PublishQuietHours); err != nil {
		return fmt.Errorf("PUBLISH_QUIET_HOURS: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TZ: %w", err)
	}
	if c.DigestDefaultLimit < 1 {
		return fmt.Errorf("DIGEST_DEFAULT_LIMIT must be >= 1")
	}
	if c.DigestThreadChunk < 1 {
		return fmt.Errorf("DIGEST_THREAD_CHUNK must be >= 1")
	}
	return nil
}

// Location resolves the configured IANA timezone used by the quiet-hours gate.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseQuietHours parses "HH-HH" into local start/end hours. Empty input
// disables quiet hours (returned as 0,0 which is never quiet).
func ParseQuietHours(raw string) (int, int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, 0, nil
	}

	parts := strings.SplitN(trimmed, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH-HH, got %q", raw)
	}
	start, err := parseHour(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseHour(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseHour(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("hour %q is not an integer", raw)
	}
	if value < 0 || value > 23 {
		return 0, fmt.Errorf("hour %d out of range 0-23", value)
	}
	return value, nil
}

// AlertChat returns the chat id alerts should go to, falling back to the
// publish channel.
func (c *Config) AlertChat() string {
	if chat := strings.TrimSpace(c.AlertChatID); chat != "" {
		return chat
	}
	return strings.TrimSpace(c.ChannelID)
}

// Package config loads environment variables into a typed Config used across
// the service. Defaults let the binary run locally with no setup; optional
// integrations (redis, responder, alert webhook) stay off until their
// variables are set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Upstream connection.
	WSURL             string
	ConnName          string
	RoomID            string
	HeartbeatInterval time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration

	// Gift engagement.
	AckGifts           bool
	GiftThankThreshold int

	// Triage.
	DedupWindow    time.Duration
	DedupMaxRecent int
	MaxQueueSize   int
	RulesPath      string
	ReplyCooldown  time.Duration

	// Responder service.
	ResponderURL     string
	ResponderTimeout time.Duration

	// Room context cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ContextDepth  int

	// Fault handling.
	AlertWebhookURL      string
	AlertWebhookMinLevel string
	ErrorMaxRetries      int

	// Reporting.
	StatsInterval time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail when
// optional integrations are unconfigured, only on values that don't parse.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.WSURL = os.Getenv("WS_URL")
	cfg.ConnName = os.Getenv("WS_CONN_NAME")
	if cfg.ConnName == "" {
		cfg.ConnName = "primary"
	}
	cfg.RoomID = os.Getenv("ROOM_ID")
	if cfg.HeartbeatInterval, err = duration("HEARTBEAT_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = integer("WS_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.BaseDelay, err = duration("WS_BASE_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxDelay, err = duration("WS_MAX_DELAY", 60*time.Second); err != nil {
		return nil, err
	}

	cfg.AckGifts = boolean("ACK_GIFTS")
	if cfg.GiftThankThreshold, err = integer("GIFT_THANK_THRESHOLD", 100); err != nil {
		return nil, err
	}

	if cfg.DedupWindow, err = duration("DEDUP_WINDOW", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DedupMaxRecent, err = integer("DEDUP_MAX_RECENT", 5); err != nil {
		return nil, err
	}
	if cfg.MaxQueueSize, err = integer("MAX_QUEUE_SIZE", 100); err != nil {
		return nil, err
	}
	cfg.RulesPath = os.Getenv("TRIAGE_RULES_PATH")
	if cfg.ReplyCooldown, err = duration("REPLY_COOLDOWN", 3*time.Second); err != nil {
		return nil, err
	}

	cfg.ResponderURL = os.Getenv("RESPONDER_URL")
	if cfg.ResponderTimeout, err = duration("RESPONDER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = integer("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ContextDepth, err = integer("CONTEXT_DEPTH", 10); err != nil {
		return nil, err
	}

	cfg.AlertWebhookURL = os.Getenv("ALERT_WEBHOOK_URL")
	cfg.AlertWebhookMinLevel = os.Getenv("ALERT_WEBHOOK_MIN_LEVEL")
	if cfg.AlertWebhookMinLevel == "" {
		cfg.AlertWebhookMinLevel = "error"
	}
	if cfg.ErrorMaxRetries, err = integer("ERROR_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	if cfg.StatsInterval, err = duration("STATS_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateConnReady checks the fields required to open the bootstrap
// connection at startup. Deployments that add connections through the API
// run without WS_URL.
func (c *Config) ValidateConnReady() error {
	if c.WSURL == "" {
		return fmt.Errorf("missing WS_URL")
	}
	return nil
}

func duration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration): %w", name, err)
	}
	return d, nil
}

func integer(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (integer): %w", name, err)
	}
	return n, nil
}

func boolean(name string) bool {
	s := os.Getenv(name)
	if s == "" {
		return false
	}
	b, _ := strconv.ParseBool(s)
	return b
}

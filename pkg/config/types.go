package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent filey configuration stored as config.toml
// in the .filey/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Telegram TelegramConfig `toml:"telegram"`
	Storage  StorageConfig  `toml:"storage"`
	API      APIConfig      `toml:"api"`
	Events   EventsConfig   `toml:"events"`
	Session  SessionConfig  `toml:"session"`
}

// TelegramConfig holds the bot account settings. An empty WebhookURL means
// long polling; a set one switches serve into webhook mode.
type TelegramConfig struct {
	Token       string `toml:"token,omitempty"`
	WebhookURL  string `toml:"webhook_url,omitempty"`
	WebhookPath string `toml:"webhook_path,omitempty"`
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	LibSQLURL   string `toml:"libsql_url,omitempty"`
}

// APIConfig holds API server settings for webhook mode.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds audit event publishing settings. Disabled means the nop
// publisher.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// SessionConfig tunes the protocol engine.
type SessionConfig struct {
	// IdleTimeout is a Go duration string; idle sessions are evicted after it.
	IdleTimeout string `toml:"idle_timeout,omitempty"`

	// PageSize is entries per listing page.
	PageSize uint `toml:"page_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"telegram.token": {
		get: func(c *Config) string { return c.Telegram.Token },
		set: func(c *Config, v string) error { c.Telegram.Token = v; return nil },
	},
	"telegram.webhook_url": {
		get: func(c *Config) string { return c.Telegram.WebhookURL },
		set: func(c *Config, v string) error { c.Telegram.WebhookURL = v; return nil },
	},
	"telegram.webhook_path": {
		get: func(c *Config) string { return c.Telegram.WebhookPath },
		set: func(c *Config, v string) error { c.Telegram.WebhookPath = v; return nil },
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case "sqlite", "postgres", "libsql", "inmemory":
				c.Storage.Driver = v
				return nil
			}
			return fmt.Errorf("invalid value for storage.driver: %q (available: sqlite, postgres, libsql, inmemory)", v)
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"storage.libsql_url": {
		get: func(c *Config) string { return c.Storage.LibSQLURL },
		set: func(c *Config, v string) error { c.Storage.LibSQLURL = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			brokers := strings.Split(v, ",")
			for i, b := range brokers {
				brokers[i] = strings.TrimSpace(b)
			}
			c.Events.Brokers = brokers
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"session.idle_timeout": {
		get: func(c *Config) string { return c.Session.IdleTimeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for session.idle_timeout: %w", err)
			}
			c.Session.IdleTimeout = v
			return nil
		},
	},
	"session.page_size": {
		get: func(c *Config) string {
			if c.Session.PageSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Session.PageSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for session.page_size: %w", err)
			}
			c.Session.PageSize = uint(n)
			return nil
		},
	},
}

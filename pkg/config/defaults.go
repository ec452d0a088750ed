package config

const (
	defaultDriver     = "sqlite"
	defaultSQLiteFile = "filey.db"

	defaultAPIListen   = ":8081"
	defaultWebhookPath = "/telegram/webhook"

	defaultEventsTopic = "filey.entries"

	defaultIdleTimeout = "30m"
	defaultPageSize    = 10
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Telegram: TelegramConfig{
			WebhookPath: defaultWebhookPath,
		},
		Storage: StorageConfig{
			Driver:     defaultDriver,
			SQLitePath: defaultSQLiteFile,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		Session: SessionConfig{
			IdleTimeout: defaultIdleTimeout,
			PageSize:    defaultPageSize,
		},
	}
}

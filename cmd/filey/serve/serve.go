// Package servecmder provides the serve command that runs the bot.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fileybot/filey/api"
	"github.com/fileybot/filey/pkg/cliui"
	"github.com/fileybot/filey/pkg/config"
	"github.com/fileybot/filey/pkg/dotdir"
	"github.com/fileybot/filey/pkg/eventstream"
	"github.com/fileybot/filey/pkg/eventstream/kafka"
	"github.com/fileybot/filey/pkg/eventstream/nop"
	"github.com/fileybot/filey/pkg/logger"
	"github.com/fileybot/filey/pkg/session"
	"github.com/fileybot/filey/pkg/storage"
	"github.com/fileybot/filey/pkg/storage/inmemory"
	"github.com/fileybot/filey/pkg/storage/libsql"
	"github.com/fileybot/filey/pkg/storage/postgres"
	"github.com/fileybot/filey/pkg/storage/sqlite"
	"github.com/fileybot/filey/pkg/telegram"
)

type ServeCommander struct {
	token       string
	webhookURL  string
	webhookPath string
	apiListen   string
	driver      string
	sqlitePath  string
	postgresDSN string
	libsqlURL   string
	eventsOn    bool
	brokers     []string
	eventsTopic string
	idleTimeout string
	pageSize    uint
	configDir   string
	debug       bool

	v   *viper.Viper
	log *slog.Logger
}

const serveLongDesc string = `Run the Filey bot.

With no webhook URL configured the bot long-polls the Telegram API.
Setting telegram.webhook_url (or --webhook-url) registers the webhook
and starts the HTTP server on api.listen instead.

Values come from flags, FILEY_* environment variables, and config.toml,
in that order of precedence.`

const serveShortDesc string = "Run the Filey bot"

// serveFlagKeys are the registry keys bound into viper for this command.
var serveFlagKeys = []string{
	config.FlagToken,
	config.FlagWebhookURL,
	config.FlagWebhookPath,
	config.FlagAPIListen,
	config.FlagDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLibSQLURL,
	config.FlagEventsOn,
	config.FlagEventsTopic,
	config.FlagIdleTimeout,
	config.FlagPageSize,
}

var serveFlags = config.FlagSet{
	config.FlagToken: {
		Name: "token", Shorthand: "t", ViperKey: "telegram.token",
		Description: "Telegram bot token",
	},
	config.FlagWebhookURL: {
		Name: "webhook-url", ViperKey: "telegram.webhook_url",
		Description: "Public webhook URL; empty means long polling",
	},
	config.FlagWebhookPath: {
		Name: "webhook-path", ViperKey: "telegram.webhook_path",
		Description: "Local path the webhook server accepts updates on",
	},
	config.FlagAPIListen: {
		Name: "api-listen", Shorthand: "a", ViperKey: "api.listen",
		Description: "Address for the webhook server to listen on",
	},
	config.FlagDriver: {
		Name: "driver", ViperKey: "storage.driver",
		Description: "Storage driver (sqlite, postgres, libsql, inmemory)",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to the SQLite database",
	},
	config.FlagPostgresDSN: {
		Name: "postgres-dsn", ViperKey: "storage.postgres_dsn",
		Description: "Postgres connection string",
	},
	config.FlagLibSQLURL: {
		Name: "libsql-url", ViperKey: "storage.libsql_url",
		Description: "libSQL database URL",
	},
	config.FlagEventsOn: {
		Name: "events", ViperKey: "events.enabled",
		Description: "Publish audit events to Kafka",
	},
	config.FlagEventsTopic: {
		Name: "events-topic", ViperKey: "events.topic",
		Description: "Kafka topic for audit events",
	},
	config.FlagIdleTimeout: {
		Name: "idle-timeout", ViperKey: "session.idle_timeout",
		Description: "Evict chat sessions idle longer than this",
	},
	config.FlagPageSize: {
		Name: "page-size", ViperKey: "session.page_size",
		Description: "Directory entries per listing page",
	},
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   serveShortDesc,
		Long:    serveLongDesc,
		PreRunE: cmder.resolve,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagToken, &cmder.token)
	config.AddStringFlag(cmd, serveFlags, config.FlagWebhookURL, &cmder.webhookURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagWebhookPath, &cmder.webhookPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagDriver, &cmder.driver)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagLibSQLURL, &cmder.libsqlURL)
	config.AddBoolFlag(cmd, serveFlags, config.FlagEventsOn, &cmder.eventsOn)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)
	config.AddStringFlag(cmd, serveFlags, config.FlagIdleTimeout, &cmder.idleTimeout)
	config.AddUintFlag(cmd, serveFlags, config.FlagPageSize, &cmder.pageSize)
	cmd.Flags().StringSliceVar(&cmder.brokers, "brokers", nil, "Kafka broker addresses for audit events")

	return cmd
}

// resolve merges flags, environment, and config file into the commander
// through the viper precedence chain.
func (c *ServeCommander) resolve(cmd *cobra.Command, _ []string) error {
	var err error
	c.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("could not get debug flag: %v", err)
	}
	c.configDir, _ = cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}

	config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
	_ = v.BindPFlag("events.brokers", cmd.Flags().Lookup("brokers"))

	c.token = v.GetString("telegram.token")
	c.webhookURL = v.GetString("telegram.webhook_url")
	c.webhookPath = v.GetString("telegram.webhook_path")
	c.apiListen = v.GetString("api.listen")
	c.driver = v.GetString("storage.driver")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.libsqlURL = v.GetString("storage.libsql_url")
	c.eventsOn = v.GetBool("events.enabled")
	c.brokers = v.GetStringSlice("events.brokers")
	c.eventsTopic = v.GetString("events.topic")
	c.idleTimeout = v.GetString("session.idle_timeout")
	c.pageSize = v.GetUint("session.page_size")
	c.v = v

	return nil
}

func (c *ServeCommander) run() error {
	c.log = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	if c.token == "" {
		return errors.New("telegram token is required (--token, FILEY_TELEGRAM_TOKEN, or telegram.token in config.toml)")
	}

	idleTimeout, err := time.ParseDuration(c.idleTimeout)
	if err != nil {
		return fmt.Errorf("parsing session.idle_timeout: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	err = cliui.Step(os.Stdout, fmt.Sprintf("Opening %s storage", c.driver), func() error {
		var err error
		store, err = c.openStore(ctx)
		return err
	})
	if err != nil {
		return err
	}
	defer store.Close()

	events := c.newPublisher()
	defer events.Close()

	engine := session.NewEngine(session.Config{
		PageSize:    int(c.pageSize),
		IdleTimeout: idleTimeout,
	}, store, events, c.log)
	defer engine.Close()

	var bot *telegram.Bot
	err = cliui.Step(os.Stdout, "Authenticating with Telegram", func() error {
		var err error
		bot, err = telegram.New(c.token, engine, c.log)
		return err
	})
	if err != nil {
		return err
	}
	c.log.Info("authenticated", "bot", bot.Username())

	// Log config file edits; a restart is still needed to apply them.
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.log.Info("config file changed, restart to apply", "file", e.Name)
	})
	c.v.WatchConfig()

	if c.webhookURL != "" {
		return c.runWebhook(ctx, bot)
	}

	return c.runPolling(ctx, bot)
}

func (c *ServeCommander) runPolling(ctx context.Context, bot *telegram.Bot) error {
	c.log.Info("starting long polling")

	err := bot.Poll(ctx)
	if errors.Is(err, context.Canceled) {
		c.log.Info("shutting down")
		return nil
	}

	return err
}

func (c *ServeCommander) runWebhook(ctx context.Context, bot *telegram.Bot) error {
	if err := bot.SetWebhook(c.webhookURL); err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		ListenAddr:  c.apiListen,
		WebhookPath: c.webhookPath,
	}, bot, c.log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("webhook server error: %w", err)
	case <-ctx.Done():
		c.log.Info("shutting down")
		return server.Shutdown()
	}
}

func (c *ServeCommander) openStore(ctx context.Context) (storage.Store, error) {
	switch c.driver {
	case "sqlite":
		path := c.sqlitePath
		if !filepath.IsAbs(path) {
			target, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, err
			}
			path = filepath.Join(target, path)
		}
		return sqlite.NewDriver(ctx, path)

	case "postgres":
		return postgres.NewDriver(ctx, c.postgresDSN)

	case "libsql":
		return libsql.NewDriver(ctx, c.libsqlURL)

	case "inmemory":
		return inmemory.NewDriver(), nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q (available: sqlite, postgres, libsql, inmemory)", c.driver)
}

func (c *ServeCommander) newPublisher() eventstream.Publisher {
	if !c.eventsOn {
		return nop.NewPublisher()
	}
	if len(c.brokers) == 0 {
		c.log.Warn("events enabled but no brokers configured, audit events disabled")
		return nop.NewPublisher()
	}

	c.log.Info("publishing audit events", "brokers", c.brokers, "topic", c.eventsTopic)

	return kafka.NewPublisher(c.brokers, c.eventsTopic)
}

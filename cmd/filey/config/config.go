// Package configcmder provides the config command for managing persistent
// filey configuration stored in the .filey/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent filey configuration.

Configuration is stored as config.toml in the .filey/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  telegram.token, telegram.webhook_url, telegram.webhook_path,
  storage.driver, storage.sqlite_path, storage.postgres_dsn, storage.libsql_url,
  api.listen,
  events.enabled, events.brokers, events.topic,
  session.idle_timeout, session.page_size

Use subcommands to get, set, or list configuration values:
  filey config set <key> <value>    Set a configuration value
  filey config get <key>            Get a configuration value
  filey config list                 List all configuration values

Examples:
  filey config set telegram.token 123456:ABC-DEF
  filey config set storage.driver postgres
  filey config get session.idle_timeout
  filey config list`

const configShortDesc string = "Manage persistent filey configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

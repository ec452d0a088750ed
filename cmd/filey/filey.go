// Package fileycmder
package fileycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/fileybot/filey/cmd/filey/config"
	servecmder "github.com/fileybot/filey/cmd/filey/serve"
	versioncmder "github.com/fileybot/filey/cmd/version"
)

const fileyLongDesc string = `Filey is a filesystem for your Telegram chats.

Send the bot any message or file and it lands in your current directory.
Navigate, rename, and delete with inline buttons.

Run the bot using:
  filey serve          Run the bot (long polling or webhook mode)
  filey config         Manage persistent configuration`

const fileyShortDesc string = "Filey - a filesystem in your chat"

func NewFileyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filey",
		Short: fileyShortDesc,
		Long:  fileyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .filey/ directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

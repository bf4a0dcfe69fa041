// Package cli is the operator tool: it shows the command manifest, the sync
// ledger, and pushes commands without running the bot.
package cli

import (
	"io"
	"os"

	"github.com/keshon/appcmd/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// App holds what every subcommand shares.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Out    io.Writer
	JSON   bool
}

func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	return &App{Config: cfg, Log: log, Out: os.Stdout}
}

// CreateRootCommand creates and configures the root command.
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "appcmd",
		Short:         "Inspect and sync the bot's application commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.Out)

	rootCmd.PersistentFlags().StringVar(&app.Config.StoragePath, "storage", app.Config.StoragePath, "Datastore file holding the sync ledger")
	rootCmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of a table")

	app.addManifestCommand(rootCmd)
	app.addStatusCommand(rootCmd)
	app.addSyncCommand(rootCmd)
	app.addReadmeCommand(rootCmd)

	return rootCmd
}

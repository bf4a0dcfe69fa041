package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/internal/discord"
	"github.com/keshon/appcmd/internal/storage"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/spf13/cobra"
)

func (app *App) addManifestCommand(rootCmd *cobra.Command) {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "List the bundled commands and compare them with the ledger",
		Long: `List every bundled command per scope with its fingerprint, and whether
the last recorded sync matches it. Commands the ledger holds that are no
longer bundled are listed as stale.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withStorage(func(store *storage.Storage) error {
				client, err := app.offlineClient(store)
				if err != nil {
					return err
				}
				entries, err := BuildManifest(client.Registry(), store)
				if err != nil {
					return err
				}
				return app.print(entries, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "SCOPE\tKIND\tNAME\tFINGERPRINT\tSTATE")
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%.12s\t%s\n", e.Scope, e.Kind, e.Name, e.Fingerprint, e.State)
					}
				})
			})
		},
	}
	rootCmd.AddCommand(manifestCmd)
}

func (app *App) addStatusCommand(rootCmd *cobra.Command) {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last sync per scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withStorage(func(store *storage.Storage) error {
				records, err := store.SyncStatus()
				if err != nil {
					return err
				}
				return app.print(records, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "SCOPE\tSYNCED\tCOMMANDS\tERROR")
					for _, r := range records {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Scope, r.SyncedAt.Format(time.DateTime), len(r.Commands), r.Error)
					}
				})
			})
		},
	}
	rootCmd.AddCommand(statusCmd)
}

func (app *App) addSyncCommand(rootCmd *cobra.Command) {
	var timeout time.Duration
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push the bundled commands to Discord once",
		Long: `Overwrite the registered commands of every scope with the bundled ones
over REST, record the outcome in the ledger and exit. The bot does not need
to be running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Config.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return app.withStorage(func(store *storage.Storage) error {
				dg, err := discordgo.New("Bot " + app.Config.DiscordToken)
				if err != nil {
					return fmt.Errorf("failed to create session: %w", err)
				}
				client := appcmd.New(appcmd.NewSessionPlatform(dg), discord.ClientOptions(app.Config, store, app.Log)...)
				if err := app.addExtensions(client, store); err != nil {
					return err
				}
				report, err := client.Sync(ctx)
				if err != nil {
					return err
				}
				return app.printReport(report)
			})
		},
	}
	syncCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
	rootCmd.AddCommand(syncCmd)
}

func (app *App) withStorage(fn func(*storage.Storage) error) error {
	store, err := storage.New(context.Background(), app.Config.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// offlineClient builds a client with every bundled extension added and no
// platform behind it; only its registry is used.
func (app *App) offlineClient(store *storage.Storage) (*appcmd.Client, error) {
	client := appcmd.New(nil, appcmd.WithLogger(app.Log))
	return client, app.addExtensions(client, store)
}

func (app *App) addExtensions(client *appcmd.Client, store *storage.Storage) error {
	exts, err := discord.Extensions(app.Config, client, store, nil, app.Log)
	if err != nil {
		return err
	}
	for _, ext := range exts {
		if err := client.AddExtension(ext); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) printReport(report *appcmd.SyncReport) error {
	guilds := make([]string, 0, len(report.Guilds)+len(report.Failures))
	for id := range report.Guilds {
		guilds = append(guilds, id)
	}
	for id := range report.Failures {
		if _, ok := report.Guilds[id]; !ok {
			guilds = append(guilds, id)
		}
	}
	sort.Strings(guilds)

	type row struct {
		Scope    string `json:"scope"`
		Commands int    `json:"commands"`
		Error    string `json:"error,omitempty"`
	}
	rows := []row{{Scope: "global", Commands: len(report.Global)}}
	for _, id := range guilds {
		r := row{Scope: id, Commands: len(report.Guilds[id])}
		if err := report.Failures[id]; err != nil {
			r.Error = err.Error()
		}
		rows = append(rows, r)
	}
	return app.print(rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "SCOPE\tCOMMANDS\tERROR")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Scope, r.Commands, r.Error)
		}
	})
}

// print writes v as JSON with --json and as a table otherwise.
func (app *App) print(v any, table func(*tabwriter.Writer)) error {
	if app.JSON {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

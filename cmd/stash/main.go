// Command stash manages a home inventory from the terminal.
//
// By default it works on a local SQLite file as the guest owner. With
// --remote it talks to a stash server instead, and login/signup keep the
// session token in a file between runs.
//
//	stash seed
//	stash items list --sort price-desc --view grid
//	stash --remote login ann@example.com
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/stash/internal/client"
	"github.com/sakif/stash/internal/config"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/repository"
	"github.com/sakif/stash/internal/server"
	"github.com/sakif/stash/internal/service"
	"github.com/sakif/stash/internal/store"
	"github.com/sakif/stash/pkg/logging"
)

func main() {
	root, closeApp := newRootCmd()
	err := root.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", describeError(err))
		os.Exit(1)
	}
}

// app is what every subcommand works with, built once per run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	inv    service.Inventory
	prefs  prefs.Storage
	client *client.Client // nil in local mode

	backend repository.Backend // nil in remote mode
}

func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("closing database", slog.String("error", err.Error()))
		}
	}
}

// newRootCmd returns the command tree and a func that releases whatever
// the run opened. Call it after Execute, also on error.
func newRootCmd() (*cobra.Command, func()) {
	v := config.New()
	v.SetDefault("log.level", "warn")
	a := &app{}
	var (
		configFile string
		remote     bool
		ephemeral  bool
	)

	root := &cobra.Command{
		Use:           "stash",
		Short:         "Track what you own and where it is",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

			if remote {
				return a.openRemote()
			}
			storage := config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: cfg.Storage.SQLitePath}
			if ephemeral {
				storage.Driver = config.DriverMemory
			}
			return a.openLocal(cmd.Context(), storage)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file (default ./stash.yaml when present)")
	flags.BoolVar(&remote, "remote", false, "use the server at --server instead of the local database")
	flags.BoolVar(&ephemeral, "ephemeral", false, "use a throwaway in-memory database")
	flags.String("server", "http://localhost:8080/api", "API base URL for --remote")
	flags.String("db", "data/stash.db", "local SQLite database path")
	flags.String("session-file", "", "where --remote keeps the session token")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	bindFlags(v, root)

	root.AddCommand(
		newItemsCmd(a),
		newAddressesCmd(a),
		newSeedCmd(a),
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
	)
	return root, a.close
}

func bindFlags(v *viper.Viper, root *cobra.Command) {
	flags := root.PersistentFlags()
	for key, name := range map[string]string{
		"client.base_url":     "server",
		"client.session_file": "session-file",
		"storage.sqlite_path": "db",
		"log.level":           "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func (a *app) openLocal(ctx context.Context, storage config.StorageConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := server.OpenBackend(ctx, storage)
	if err != nil {
		return fmt.Errorf("opening local database: %w", err)
	}
	a.backend = backend
	st := store.NewManager(backend, a.logger).Guest()
	a.inv = service.NewInventoryService(st, notify.NewLogNotifier(a.logger), a.logger)
	a.prefs = prefs.New(backend, a.logger)
	return nil
}

func (a *app) openRemote() error {
	c, err := client.New(a.cfg.Client.BaseURL)
	if err != nil {
		return err
	}
	token, err := loadToken(a.sessionFile())
	if err != nil {
		return err
	}
	c.SetToken(token)

	a.client = c
	a.inv = c
	a.prefs = c.Preferences()
	return nil
}

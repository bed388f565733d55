// Command server runs the stash HTTP API.
//
// Configuration comes from defaults, an optional YAML file and STASH_*
// environment variables; see internal/config.
//
//	STASH_AUTH_JWT_SECRET=$(openssl rand -hex 32) server --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/stash/internal/config"
	"github.com/sakif/stash/internal/server"
	"github.com/sakif/stash/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the stash inventory API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			slog.SetDefault(logger)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			srv, err := server.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}
			if err := srv.Start(ctx); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML config file (default ./stash.yaml when present)")
	flags.Int("port", 8080, "HTTP port")
	flags.String("storage", config.DriverSQLite, "storage driver: sqlite, postgres or memory")
	flags.String("db", "data/stash.db", "SQLite database path")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("storage.driver", flags.Lookup("storage"))
	_ = v.BindPFlag("storage.sqlite_path", flags.Lookup("db"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	return cmd
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/stash/internal/config"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/repository"
	"github.com/sakif/stash/internal/repository/memory"
	"github.com/sakif/stash/internal/repository/postgres"
	"github.com/sakif/stash/internal/repository/sqlite"
)

const (
	notifyQueueSize = 64
	notifyTimeout   = 10 * time.Second
)

// OpenBackend opens the driver named in cfg. The caller owns the result and
// must Close it.
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (repository.Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PostgresURL)
	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			dir := filepath.Dir(cfg.SQLitePath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewNotifier returns a started queue in front of SES when it is enabled,
// or in front of a notifier that only logs. Stop the queue on shutdown.
func NewNotifier(ctx context.Context, cfg config.SESConfig, logger *slog.Logger) (*notify.Queue, error) {
	var next notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Enabled {
		ses, err := notify.NewSESNotifier(ctx, cfg.Region, cfg.From, logger)
		if err != nil {
			return nil, err
		}
		next = ses
	}
	q := notify.NewQueue(next, notifyQueueSize, notifyTimeout, logger)
	q.Start()
	return q, nil
}

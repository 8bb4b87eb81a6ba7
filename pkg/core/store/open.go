package store

import (
	"context"
	"log/slog"
)

// Options selects a backend. The first configured one wins: Postgres, then
// SQLite, then the file store; with nothing configured the store is in memory.
type Options struct {
	DatabaseURL string
	SQLitePath  string
	Dir         string
}

// Open returns the backend chosen by opts.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case opts.DatabaseURL != "":
		logger.Info("using postgres store")
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case opts.SQLitePath != "":
		logger.Info("using sqlite store", "path", opts.SQLitePath)
		return NewSQLiteStore(opts.SQLitePath)
	case opts.Dir != "":
		logger.Info("using file store", "dir", opts.Dir)
		return NewFileStore(opts.Dir)
	default:
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	}
}

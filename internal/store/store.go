// Package store implements core.Store on PostgreSQL (pgx), SQLite
// (modernc.org/sqlite) and in process memory.
//
// All backends share the same ordering and filter semantics: summaries are
// ordered by first_start descending then file_name ascending, and filters are
// rendered from core.FilterSet by WhereBuilder (SQL) or FilterSet.Match
// (memory).
package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/JonMunkholm/measurestats/internal/config"
	"github.com/JonMunkholm/measurestats/internal/core"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Ordering shared by every SQL backend.
const summaryOrder = " ORDER BY first_start DESC, file_name ASC"

// Backend is a core.Store that owns its connections and can create its
// own tables.
type Backend interface {
	core.Store
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgres(ctx, cfg)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.URL, cfg.BusyTimeout)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

//go:embed schema
var schemaFS embed.FS

// applySchema runs every .sql file under schema/<dir> in name order.
// The scripts only use CREATE ... IF NOT EXISTS, so they can run on every
// start. There is no version table and no down step.
func applySchema(ctx context.Context, dir string, exec func(ctx context.Context, sql string) error) error {
	root := "schema/" + dir
	entries, err := fs.ReadDir(schemaFS, root)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(schemaFS, root+"/"+name)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply schema %s: %w", name, err)
		}
		slog.Debug("schema applied", "driver", dir, "script", name)
	}
	return nil
}

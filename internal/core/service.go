package core

import (
	"context"

	"github.com/JonMunkholm/measurestats/internal/config"
)

// Service provides the core business logic for imports and queries.
// It is the single entry point used by the web server and the CLI.
type Service struct {
	*Importer
	*QueryService

	store Store
}

// NewService creates a Service backed by store and configured from cfg.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{
		Importer: NewImporter(store, ImporterOptions{
			BatchSize:     cfg.Upload.BatchSize,
			MaxRows:       cfg.Upload.MaxRows,
			Timeout:       cfg.Upload.Timeout,
			MaxConcurrent: cfg.Upload.MaxConcurrent,
			MaxWait:       cfg.Upload.MaxWaitTime,
		}),
		QueryService: NewQueryService(store, QueryOptions{
			RecentDefault: cfg.Query.RecentCount,
			RecentMax:     cfg.Query.RecentMax,
		}),
		store: store,
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ImportLimiterStatus returns the current import concurrency state.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.Limiter().Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.Limiter().WaitForDrain(ctx)
}

// Package sqlite provides the public API for the SQLite Artifact Store.
// This package exposes the factory function for opening the store while
// keeping implementation details internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/internal/sqlite"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Store is an attached Artifact Store. Detach releases it.
type Store interface {
	types.ArtifactStore
	Detach() error
}

// NewStore opens the SQLite store described by cfg. legacy may be nil when
// there is no history to migrate; logger may be nil.
//
// Example:
//
//	store, err := sqlite.NewStore(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dataDir,
//	}, legacy, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Detach()
func NewStore(cfg types.Config, legacy types.LegacyHistory, logger *zap.Logger) (Store, error) {
	opts := []sqlite.Option{}
	if legacy != nil {
		opts = append(opts, sqlite.WithLegacy(legacy))
	}
	if logger != nil {
		opts = append(opts, sqlite.WithLogger(logger))
	}
	b := sqlite.NewBackend(opts...)
	if err := b.Attach(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

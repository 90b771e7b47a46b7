// Package sqlite implements the Artifact Store on SQLite.
//
// The database is the primary durable store. On the first Load of an empty
// database the backend migrates the legacy history from the local key-value
// file, and if that yields nothing it seeds the built-in examples.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// DBFileName is the database file inside DataDir.
const DBFileName = "bringtolife.db"

// Backend implements types.ArtifactStore using SQLite.
type Backend struct {
	mu       sync.Mutex
	attached bool
	config   types.Config
	db       *sql.DB

	legacy types.LegacyHistory
	seeds  []*types.Creation
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Backend.
type Option func(*Backend)

// WithLegacy sets the legacy history migrated on first Load.
func WithLegacy(l types.LegacyHistory) Option {
	return func(b *Backend) { b.legacy = l }
}

// WithSeeds replaces the built-in examples used to seed an empty store. An
// empty non-nil slice disables seeding.
func WithSeeds(seeds []*types.Creation) Option {
	return func(b *Backend) { b.seeds = seeds }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock sets the time source used for records missing a timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithIDGenerator sets the id source used for records missing an id.
func WithIDGenerator(newID func() string) Option {
	return func(b *Backend) { b.newID = newID }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  generateUUID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (or creates) the database in config.DataDir and applies the
// schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps writes serialized inside the process.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true

	b.logger.Debug("store attached", zap.String("path", dbPath))
	return nil
}

// Detach releases the database. Detach is idempotent; after it every
// operation returns ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	return nil
}

// Load returns every creation, newest first, trying the primary store, then
// legacy migration, then the built-in examples.
func (b *Backend) Load() ([]*types.Creation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	primary, err := allCreations(b.db, b.logger)
	if err != nil {
		return nil, fmt.Errorf("read primary store: %w", err)
	}
	if len(primary) > 0 {
		return primary, nil
	}

	migrated, err := b.migrateLegacyLocked()
	if err != nil {
		b.logger.Warn("legacy migration failed", zap.Error(err))
	}
	if migrated > 0 {
		primary, err = allCreations(b.db, b.logger)
		if err != nil {
			return nil, fmt.Errorf("read migrated store: %w", err)
		}
		if len(primary) > 0 {
			b.logger.Info("legacy history migrated", zap.Int("records", len(primary)))
			return primary, nil
		}
	}

	return b.seedLocked(), nil
}

// Save upserts c by id. A record that exceeds the quota is retried once with
// OriginalImage stripped.
func (b *Backend) Save(c *types.Creation) error {
	if err := c.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return b.saveLocked(b.db, c)
}

// saveLocked runs the two-phase write against q, which is the database or a
// transaction. The caller must hold b.mu.
func (b *Backend) saveLocked(q execer, c *types.Creation) error {
	err := putCreation(q, c, b.config.MaxRecordBytes)
	if err == nil {
		return nil
	}
	if !isQuotaError(err) || c.OriginalImage == "" {
		return fmt.Errorf("save %s: %w", c.ID, err)
	}

	b.logger.Warn("creation exceeds storage quota, saving without image",
		zap.String("id", c.ID),
		zap.Int("image_bytes", len(c.OriginalImage)))

	if err := putCreation(q, c.WithoutImage(), b.config.MaxRecordBytes); err != nil {
		return fmt.Errorf("save %s without image: %w", c.ID, err)
	}
	return nil
}

// Delete removes the creation with id. Unknown ids are a no-op.
func (b *Backend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	if id == "" {
		return nil
	}
	return deleteCreation(b.db, id)
}

// Get returns the stored creation with id, or ErrNotFound.
func (b *Backend) Get(id string) (*types.Creation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return getCreation(b.db, id)
}

// Count returns the number of stored creations.
func (b *Backend) Count() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return 0, types.ErrStoreDetached
	}
	var n int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM creations").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting creations: %w", err)
	}
	return n, nil
}

// generateUUID generates a UUID v7 for creation ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

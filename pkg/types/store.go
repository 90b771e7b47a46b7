package types

import "encoding/json"

// ArtifactStore persists creations. Absence is never an error: Load on an
// empty store seeds it, and Delete of an unknown id succeeds.
type ArtifactStore interface {
	// Load returns every creation, newest first. The first call on a fresh
	// installation migrates legacy history or seeds built-in examples.
	Load() ([]*Creation, error)

	// Save creates or replaces the creation with c.ID. When the full record
	// does not fit it is retried without OriginalImage; ErrStorageQuotaExceeded
	// is returned only when both attempts fail.
	Save(c *Creation) error

	// Delete removes the creation with the given id, if any.
	Delete(id string) error
}

// KeyValue is a string slot store. Get returns "" with a nil error when the
// key is absent.
type KeyValue interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// LegacyHistory is the superseded history mechanism that the Artifact Store
// migrates from once.
type LegacyHistory interface {
	// ReadLegacy returns each stored history element undecoded. A missing
	// history yields nil.
	ReadLegacy() ([]json.RawMessage, error)

	// ClearLegacy removes the history after a successful migration.
	ClearLegacy() error
}

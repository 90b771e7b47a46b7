package sqlite

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// migrateLegacyLocked copies the legacy history into the primary store and
// returns how many records it migrated. Records that fail to decode or
// validate are skipped. The legacy history is cleared only after the
// transaction commits with at least one record, so a failed migration leaves
// it in place for the next attempt. The caller must hold b.mu.
func (b *Backend) migrateLegacyLocked() (int, error) {
	if b.legacy == nil {
		return 0, nil
	}

	records, err := b.legacy.ReadLegacy()
	if err != nil {
		return 0, fmt.Errorf("reading legacy history: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	migrated := 0
	for i, raw := range records {
		c, err := decodeLegacy(raw)
		if err != nil {
			b.logger.Warn("skipping legacy record", zap.Int("index", i), zap.Error(err))
			continue
		}
		c.FillDefaults(b.now(), b.newID)
		if err := c.Validate(); err != nil {
			b.logger.Warn("skipping legacy record", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := b.saveLocked(tx, c); err != nil {
			b.logger.Warn("skipping legacy record",
				zap.Int("index", i), zap.String("id", c.ID), zap.Error(err))
			continue
		}
		migrated++
	}

	if migrated == 0 {
		return 0, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing migration: %w", err)
	}

	if err := b.legacy.ClearLegacy(); err != nil {
		// Never read again once the primary store has rows.
		b.logger.Warn("could not clear legacy history", zap.Error(err))
	}
	return migrated, nil
}

// decodeLegacy decodes one history element. Elements that are not JSON
// objects are rejected.
func decodeLegacy(raw json.RawMessage) (*types.Creation, error) {
	var c types.Creation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

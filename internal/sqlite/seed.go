package sqlite

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

//go:embed seeds/*.json
var seedFS embed.FS

// exampleFiles lists the built-in examples, newest first.
var exampleFiles = []string{
	"seeds/vibecode-blog.json",
	"seeds/cassette.json",
	"seeds/chess.json",
}

var builtInExamples = mustLoadExamples(seedFS, exampleFiles)

func mustLoadExamples(fsys fs.FS, files []string) []*types.Creation {
	out, err := loadExamples(fsys, files)
	if err != nil {
		panic(err)
	}
	return out
}

func loadExamples(fsys fs.FS, files []string) ([]*types.Creation, error) {
	out := make([]*types.Creation, 0, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var c types.Creation
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if c.Timestamp.IsZero() {
			return nil, fmt.Errorf("%s: missing timestamp", name)
		}
		out = append(out, &c)
	}
	return out, nil
}

// BuiltInExamples returns copies of the examples seeded into an empty store.
func BuiltInExamples() []*types.Creation {
	out := make([]*types.Creation, len(builtInExamples))
	for i, c := range builtInExamples {
		out[i] = c.Clone()
	}
	return out
}

// seedLocked writes the examples in one transaction and returns them newest
// first. A failed write is logged and the examples are still returned. The
// caller must hold b.mu.
func (b *Backend) seedLocked() []*types.Creation {
	seeds := b.seeds
	if seeds == nil {
		seeds = BuiltInExamples()
	}

	out := make([]*types.Creation, len(seeds))
	for i, c := range seeds {
		out[i] = c.Clone()
	}
	types.SortNewestFirst(out)
	if len(out) == 0 {
		return out
	}

	if err := b.writeSeedsLocked(out); err != nil {
		b.logger.Warn("could not persist built-in examples", zap.Error(err))
		return out
	}
	b.logger.Info("seeded built-in examples", zap.Int("count", len(out)))
	return out
}

func (b *Backend) writeSeedsLocked(seeds []*types.Creation) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range seeds {
		if err := b.saveLocked(tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

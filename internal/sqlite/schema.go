package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Schema DDL. Every statement is idempotent so Attach can run it against an
// existing database.
const (
	createCreations = `CREATE TABLE IF NOT EXISTS creations (
    creation_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    html TEXT NOT NULL,
    original_image TEXT NOT NULL DEFAULT '',
    extra TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);`

	idxCreationsCreatedAt = `CREATE INDEX IF NOT EXISTS idx_creations_created_at ON creations(created_at);`
)

// schemaDDL lists all statements in the order they run.
var schemaDDL = []string{
	createCreations,
	idxCreationsCreatedAt,
}

// createdAtLayout is fixed width so that text order equals time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const (
	upsertCreation = `INSERT INTO creations (creation_id, name, html, original_image, extra, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(creation_id) DO UPDATE SET
    name = excluded.name,
    html = excluded.html,
    original_image = excluded.original_image,
    extra = excluded.extra,
    created_at = excluded.created_at`

	selectCreations = `SELECT creation_id, name, html, original_image, extra, created_at
FROM creations ORDER BY created_at DESC, creation_id ASC`

	selectCreation = `SELECT creation_id, name, html, original_image, extra, created_at
FROM creations WHERE creation_id = ?`
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func applySchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// recordSize is the encoded size of c as counted against MaxRecordBytes.
func recordSize(c *types.Creation) (int64, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func putCreation(q execer, c *types.Creation, limit int64) error {
	if limit > 0 {
		size, err := recordSize(c)
		if err != nil {
			return fmt.Errorf("encoding creation: %w", err)
		}
		if size > limit {
			return fmt.Errorf("record is %d bytes, limit %d: %w", size, limit, types.ErrStorageQuotaExceeded)
		}
	}

	extra := "{}"
	if len(c.Extra) > 0 {
		data, err := json.Marshal(c.Extra)
		if err != nil {
			return fmt.Errorf("encoding extra fields: %w", err)
		}
		extra = string(data)
	}

	_, err := q.Exec(upsertCreation,
		c.ID, c.Name, c.HTML, c.OriginalImage, extra,
		c.Timestamp.UTC().Format(createdAtLayout))
	return translateErr(err)
}

func deleteCreation(q execer, id string) error {
	_, err := q.Exec("DELETE FROM creations WHERE creation_id = ?", id)
	return translateErr(err)
}

func getCreation(q queryer, id string) (*types.Creation, error) {
	c, err := scanCreation(q.QueryRow(selectCreation, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// allCreations returns every readable row, newest first. A row that cannot
// be decoded is logged and skipped.
func allCreations(q queryer, logger *zap.Logger) ([]*types.Creation, error) {
	rows, err := q.Query(selectCreations)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*types.Creation
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			logger.Warn("skipping unreadable creation", zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreation(row rowScanner) (*types.Creation, error) {
	var (
		c         types.Creation
		extra     string
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.HTML, &c.OriginalImage, &extra, &createdAt); err != nil {
		return nil, err
	}

	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("creation %s: parsing created_at: %w", c.ID, err)
	}
	c.Timestamp = ts
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("creation %s: %w", c.ID, err)
	}

	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &c.Extra); err != nil {
			return nil, fmt.Errorf("creation %s: parsing extra: %w", c.ID, err)
		}
	}
	return &c, nil
}

// translateErr maps a full database or disk to ErrStorageQuotaExceeded.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlitelib.SQLITE_FULL {
		return fmt.Errorf("%s: %w", se.Error(), types.ErrStorageQuotaExceeded)
	}
	return err
}

func isQuotaError(err error) bool {
	return errors.Is(err, types.ErrStorageQuotaExceeded)
}

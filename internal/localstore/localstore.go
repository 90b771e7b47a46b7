// Package localstore implements the size-limited key-value file that predates
// the SQLite store. It holds the credential slots and the legacy history
// array, and enforces a total byte quota the way a browser's local storage
// does.
package localstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// FileName is the default file name inside the data directory.
const FileName = "localstore.json"

// HistoryKey is the slot holding the legacy history as a JSON array string.
const HistoryKey = "gemini_app_history"

// DefaultQuotaBytes mirrors the common 5 MiB local storage limit.
const DefaultQuotaBytes = 5 << 20

// Store is a JSON object of string values persisted in one file. All writes
// replace the file atomically.
type Store struct {
	mu     sync.Mutex
	path   string
	quota  int64
	values map[string]string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithQuota sets the total byte quota. Zero or less disables it.
func WithQuota(bytes int64) Option {
	return func(s *Store) { s.quota = bytes }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open reads the store at path. A missing file is an empty store; the file
// is created on the first write.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		quota:  DefaultQuotaBytes,
		values: make(map[string]string),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns the value for key, or "" when the key is absent.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Set stores value under key. It fails with ErrStorageQuotaExceeded when the
// store would grow beyond its quota; the previous state is kept.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value

	if s.quota > 0 {
		if size := usage(next); size > s.quota {
			s.logger.Warn("local store quota exceeded",
				zap.String("key", key),
				zap.Int64("bytes", size),
				zap.Int64("quota", s.quota))
			return fmt.Errorf("set %q: %w", key, types.ErrStorageQuotaExceeded)
		}
	}

	if err := writeAtomic(s.path, next); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.values = next
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	next := make(map[string]string, len(s.values))
	for k, v := range s.values {
		if k != key {
			next[k] = v
		}
	}
	if err := writeAtomic(s.path, next); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	s.values = next
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Usage returns the bytes counted against the quota.
func (s *Store) Usage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return usage(s.values)
}

// usage counts key and value bytes.
func usage(values map[string]string) int64 {
	var n int64
	for k, v := range values {
		n += int64(len(k) + len(v))
	}
	return n
}

// writeAtomic writes values to path using the temp-file, fsync, rename
// pattern.
func writeAtomic(path string, values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".localstore-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

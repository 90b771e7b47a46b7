package localstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReadLegacy returns the elements of the legacy history array without
// decoding them. A missing or blank history yields nil. A history that is not
// a JSON array is an error: nothing in it can be migrated safely.
func (s *Store) ReadLegacy() ([]json.RawMessage, error) {
	raw, err := s.Get(HistoryKey)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", HistoryKey, err)
	}
	return records, nil
}

// ClearLegacy removes the legacy history slot.
func (s *Store) ClearLegacy() error {
	return s.Remove(HistoryKey)
}

// WriteLegacy stores records as the legacy history array. It exists for the
// legacy import command and for tests that stage a pre-migration install.
func (s *Store) WriteLegacy(records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", HistoryKey, err)
	}
	return s.Set(HistoryKey, string(data))
}

package types

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

// TimestampLayout is the wire format for Creation.Timestamp: RFC 3339 with
// millisecond precision in UTC, matching what browser exports contain.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Field names of the export document.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldHTML          = "html"
	FieldOriginalImage = "originalImage"
	FieldTimestamp     = "timestamp"
)

// Creation is one generated or imported HTML artifact.
type Creation struct {
	ID            string    // Opaque unique identifier, never reassigned.
	Name          string    // Display label.
	HTML          string    // The document; opaque beyond fence stripping.
	OriginalImage string    // Optional data URL of the source image.
	Timestamp     time.Time // Creation time; history sorts on it, newest first.

	// Extra carries unknown export-document fields so that an
	// import followed by an export loses nothing.
	Extra map[string]json.RawMessage
}

// Validate reports whether the creation may be persisted or activated.
func (c *Creation) Validate() error {
	if c == nil {
		return ErrInvalidCreation
	}
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCreation)
	}
	if strings.TrimSpace(c.HTML) == "" {
		return fmt.Errorf("%w: empty html", ErrInvalidCreation)
	}
	if !c.Timestamp.IsZero() && !TimestampInRange(c.Timestamp) {
		return fmt.Errorf("%w: timestamp year %d out of range", ErrInvalidCreation, c.Timestamp.UTC().Year())
	}
	return nil
}

// FillDefaults assigns an id and a timestamp when they are missing.
// Existing values are never replaced.
func (c *Creation) FillDefaults(now time.Time, newID func() string) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}
}

// Clone returns a deep copy.
func (c *Creation) Clone() *Creation {
	cp := *c
	if c.Extra != nil {
		cp.Extra = maps.Clone(c.Extra)
	}
	return &cp
}

// WithoutImage returns a copy with OriginalImage dropped. Storage uses it
// when the full record does not fit.
func (c *Creation) WithoutImage() *Creation {
	cp := c.Clone()
	cp.OriginalImage = ""
	return cp
}

// MarshalJSON writes the export document. Extra fields are emitted next to
// the known ones; known fields win on collision.
func (c Creation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+5)
	for k, v := range c.Extra {
		out[k] = v
	}
	out[FieldID] = c.ID
	out[FieldName] = c.Name
	out[FieldHTML] = c.HTML
	if c.OriginalImage != "" {
		out[FieldOriginalImage] = c.OriginalImage
	}
	if c.Timestamp.IsZero() {
		delete(out, FieldTimestamp)
	} else {
		out[FieldTimestamp] = c.Timestamp.UTC().Format(TimestampLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads an export document or a legacy history element.
// Known string fields must be strings or null. A missing or unparseable
// timestamp leaves Timestamp zero; callers fill it with FillDefaults.
func (c *Creation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("creation must be a JSON object")
	}

	var out Creation
	for key, val := range raw {
		var err error
		switch key {
		case FieldID:
			out.ID, err = decodeString(key, val)
		case FieldName:
			out.Name, err = decodeString(key, val)
		case FieldHTML:
			out.HTML, err = decodeString(key, val)
		case FieldOriginalImage:
			out.OriginalImage, err = decodeString(key, val)
		case FieldTimestamp:
			if ts, perr := ParseTimestamp(val); perr == nil {
				out.Timestamp = ts
			}
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = slices.Clone(val)
		}
		if err != nil {
			return err
		}
	}
	*c = out
	return nil
}

func decodeString(field string, val json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return "", fmt.Errorf("field %q must be a string", field)
	}
	return s, nil
}

// Years a timestamp may carry. Stored timestamps use a four-digit year.
const (
	MinTimestampYear = 0
	MaxTimestampYear = 9999
)

// TimestampInRange reports whether t has a four-digit UTC year.
func TimestampInRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= MinTimestampYear && y <= MaxTimestampYear
}

// maxUnixMilli bounds the float to int64 conversion.
const maxUnixMilli = 1 << 62

func checkRange(t time.Time) (time.Time, error) {
	if !TimestampInRange(t) {
		return time.Time{}, fmt.Errorf("timestamp year %d out of range", t.Year())
	}
	return t, nil
}

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp rebuilds a time from its persisted form: a date string in
// one of the accepted layouts or a number of Unix milliseconds. Times outside
// years 0000 to 9999 are rejected.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return ParseTimestampString(s)
	}

	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be a string or number")
	}
	f, err := ms.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	if math.IsNaN(f) || math.Abs(f) > maxUnixMilli {
		return time.Time{}, fmt.Errorf("timestamp %s out of range", ms)
	}
	return checkRange(time.UnixMilli(int64(f)).UTC())
}

// ParseTimestampString parses a string timestamp in any accepted layout.
func ParseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return checkRange(t.UTC())
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SortNewestFirst orders creations by timestamp descending, breaking ties
// by id so the order is deterministic.
func SortNewestFirst(cs []*Creation) {
	slices.SortStableFunc(cs, func(a, b *Creation) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

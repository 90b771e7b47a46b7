// Package credential resolves the API credential used for generation calls.
//
// Resolution order is an explicit value, then the primary slot, then the
// legacy slot (copied forward into the primary slot when found), then an
// environment-level fallback. Resolution never fails; an empty result means
// no credential is configured.
package credential

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Slot names in the local key-value file.
const (
	PrimaryKey = "capy_gemini_key"
	LegacyKey  = "gemini_user_api_key"
)

// Shape of keys issued by the generative language API.
const (
	KeyPrefix    = "AIza"
	MinKeyLength = 39
)

// Resolver picks the credential for a generation call.
type Resolver struct {
	slots    types.KeyValue
	fallback string
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback sets the environment-level credential consulted last.
func WithFallback(key string) Option {
	return func(r *Resolver) { r.fallback = Clean(key) }
}

// WithLogger sets the logger. Credentials themselves are never logged.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a Resolver reading the given slots. slots may be nil,
// in which case only explicit and fallback values resolve.
func NewResolver(slots types.KeyValue, opts ...Option) *Resolver {
	r := &Resolver{slots: slots, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the credential to use, or "" when none is configured.
// A legacy-slot hit is written forward into the primary slot; the legacy
// slot is left in place.
func (r *Resolver) Resolve(explicit string) string {
	if key := Clean(explicit); key != "" {
		r.logger.Debug("credential resolved", zap.String("source", "explicit"), zap.Int("length", len(key)))
		return key
	}

	if key := r.readSlot(PrimaryKey); key != "" {
		r.logger.Debug("credential resolved", zap.String("source", "primary"), zap.Int("length", len(key)))
		return key
	}

	if key := r.readSlot(LegacyKey); key != "" {
		if err := r.slots.Set(PrimaryKey, key); err != nil {
			r.logger.Warn("credential migration failed", zap.Error(err))
		} else {
			r.logger.Info("credential migrated from legacy slot")
		}
		return key
	}

	if r.fallback != "" {
		r.logger.Debug("credential resolved", zap.String("source", "environment"), zap.Int("length", len(r.fallback)))
		return r.fallback
	}

	return ""
}

// Remember cleans key and stores it in the primary slot.
func (r *Resolver) Remember(key string) error {
	key = Clean(key)
	if err := Validate(key); err != nil {
		return err
	}
	if r.slots == nil {
		return fmt.Errorf("remember credential: no slot storage configured")
	}
	if err := r.slots.Set(PrimaryKey, key); err != nil {
		return fmt.Errorf("remember credential: %w", err)
	}
	return nil
}

// Forget clears the primary slot. The legacy slot is kept.
func (r *Resolver) Forget() error {
	if r.slots == nil {
		return nil
	}
	return r.slots.Remove(PrimaryKey)
}

func (r *Resolver) readSlot(name string) string {
	if r.slots == nil {
		return ""
	}
	v, err := r.slots.Get(name)
	if err != nil {
		r.logger.Debug("credential slot unreadable", zap.String("slot", name), zap.Error(err))
		return ""
	}
	return Clean(v)
}

// Clean strips whitespace, wrapping quotes, and "Bearer " or "key=" prefixes
// that creep in when a key is pasted from a header or a URL.
func Clean(s string) string {
	for {
		prev := s
		s = strings.TrimSpace(s)
		s = strings.Trim(s, "\"'`")
		if len(s) >= 7 && strings.EqualFold(s[:7], "bearer ") {
			s = s[7:]
		}
		if len(s) >= 4 && strings.EqualFold(s[:4], "key=") {
			s = s[4:]
		}
		if s == prev {
			return s
		}
	}
}

// Validate checks the shape of key so callers can tell "missing" from
// "probably malformed" before any network call.
func Validate(key string) error {
	if key == "" {
		return types.ErrMissingCredential
	}
	if !strings.HasPrefix(key, KeyPrefix) || len(key) < MinKeyLength {
		return fmt.Errorf("%w: expected a %s... key of at least %d characters", types.ErrInvalidCredential, KeyPrefix, MinKeyLength)
	}
	return nil
}

// Mask renders key for display with all but its last four characters hidden.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

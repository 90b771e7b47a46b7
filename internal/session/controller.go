// Package session coordinates generation, import, selection and deletion of
// creations over an Artifact Store.
//
// The Controller guards its in-memory state with a mutex held only across
// synchronous segments, never across the model call. It does not serialize
// generations: callers must not issue overlapping StartGeneration calls, or
// the active creation and history order may interleave. The HTTP layer
// enforces this with a semaphore.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/internal/gemini"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Generator produces an HTML document. *gemini.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

// Resolver picks the credential for a call. *credential.Resolver
// implements it.
type Resolver interface {
	Resolve(explicit string) string
}

// GenerateInput is one generation request. Credential is passed explicitly;
// when empty the Resolver's stored and fallback credentials apply.
type GenerateInput struct {
	Credential string
	Prompt     string
	File       *Attachment
	Mode       types.Mode
}

// Controller holds the session's history and active creation.
type Controller struct {
	mu      sync.Mutex
	history []*types.Creation
	active  *types.Creation

	store     types.ArtifactStore
	resolver  Resolver
	generator Generator
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	names     *bluemonday.Policy
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source for new creations.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator sets the id source for new creations.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// New creates a Controller. Call Load before use.
func New(store types.ArtifactStore, resolver Resolver, generator Generator, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		resolver:  resolver,
		generator: generator,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		names:     bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the history from the store. It is called once at startup.
func (c *Controller) Load() error {
	loaded, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	types.SortNewestFirst(loaded)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = loaded
	c.active = nil
	c.logger.Debug("history loaded", zap.Int("creations", len(loaded)))
	return nil
}

// StartGeneration generates a creation, persists it, prepends it to the
// history and activates it. The active creation is cleared first and stays
// cleared on failure. A save failure is logged and the creation is kept in
// memory only.
func (c *Controller) StartGeneration(ctx context.Context, in GenerateInput) (*types.Creation, error) {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()

	key := c.resolver.Resolve(in.Credential)
	if key == "" {
		return nil, types.ErrMissingCredential
	}

	mode := in.Mode
	if mode == "" {
		mode = types.ModeApp
	}

	req := gemini.Request{Credential: key, Prompt: in.Prompt, Mode: mode}
	if in.File != nil {
		if in.File.IsText() {
			req.Prompt = appendText(in.Prompt, in.File)
		} else {
			req.FileData = in.File.Base64()
			req.FileMimeType = in.File.mediaType()
		}
	}

	out, err := c.generator.Generate(ctx, req)
	if err != nil {
		c.logger.Warn("generation failed",
			zap.String("mode", mode.String()),
			zap.Stringer("kind", types.KindOf(err)),
			zap.Error(err))
		return nil, err
	}

	created := &types.Creation{
		ID:        c.newID(),
		Name:      mode.DefaultName(),
		HTML:      out,
		Timestamp: c.now(),
	}
	if in.File != nil {
		if name := strings.TrimSpace(in.File.Name); name != "" {
			created.Name = name
		}
		if in.File.IsImage() {
			created.OriginalImage = in.File.DataURL()
		}
	}

	if err := c.store.Save(created); err != nil {
		c.logger.Warn("could not persist creation, keeping it in memory",
			zap.String("id", created.ID),
			zap.Stringer("kind", types.KindOf(err)),
			zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]*types.Creation{created}, c.history...)
	c.active = created
	c.logger.Info("creation generated", zap.String("id", created.ID), zap.String("name", created.Name))
	return created.Clone(), nil
}

// ImportCreation reads an export document. It needs non-empty string html
// and name fields; a missing id or timestamp is filled in. A document whose
// id is already in the history replaces that entry and moves to the front.
// The creation is saved, then activated.
func (c *Controller) ImportCreation(raw []byte) (*types.Creation, error) {
	imported, err := c.decodeImport(raw)
	if err != nil {
		return nil, err
	}
	imported.FillDefaults(c.now(), c.newID)

	if err := c.store.Save(imported); err != nil {
		return nil, fmt.Errorf("saving imported creation: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(imported.ID); i >= 0 {
		c.history = slices.Delete(c.history, i, i+1)
		c.logger.Info("import replaced existing creation", zap.String("id", imported.ID))
	} else {
		c.logger.Info("creation imported", zap.String("id", imported.ID))
	}
	c.history = append([]*types.Creation{imported}, c.history...)
	c.active = imported
	return imported.Clone(), nil
}

func (c *Controller) decodeImport(raw []byte) (*types.Creation, error) {
	raw = bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", types.ErrInvalidImportFormat)
	}
	for _, field := range []string{types.FieldHTML, types.FieldName} {
		var s string
		if err := json.Unmarshal(fields[field], &s); err != nil || strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: missing %s", types.ErrInvalidImportFormat, field)
		}
	}

	var imported types.Creation
	if err := json.Unmarshal(raw, &imported); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidImportFormat, err)
	}

	name := strings.TrimSpace(html.UnescapeString(c.names.Sanitize(imported.Name)))
	if name == "" {
		return nil, fmt.Errorf("%w: name has no text", types.ErrInvalidImportFormat)
	}
	imported.Name = name
	return &imported, nil
}

// ExportCreation returns the export document for id.
func (c *Controller) ExportCreation(id string) ([]byte, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	var found *types.Creation
	if i >= 0 {
		found = c.history[i].Clone()
	}
	c.mu.Unlock()

	if found == nil {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	data, err := json.MarshalIndent(found, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", id, err)
	}
	return append(data, '\n'), nil
}

// SelectCreation makes the creation with id active. Nothing is persisted.
func (c *Controller) SelectCreation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	c.active = c.history[i]
	return nil
}

// Reset clears the active creation.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// Active returns a copy of the active creation, or nil.
func (c *Controller) Active() *types.Creation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	return c.active.Clone()
}

// History returns copies of the creations, newest first.
func (c *Controller) History() []*types.Creation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Creation, len(c.history))
	for i, h := range c.history {
		out[i] = h.Clone()
	}
	return out
}

// DeleteCreation removes the creation with id from the store and the
// history. An unknown id is ErrNotFound.
func (c *Controller) DeleteCreation(id string) error {
	c.mu.Lock()
	known := c.indexLocked(id) >= 0
	c.mu.Unlock()
	if !known {
		return fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}

	if err := c.store.Delete(id); err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		c.history = append(c.history[:i], c.history[i+1:]...)
	}
	if c.active != nil && c.active.ID == id {
		c.active = nil
	}
	return nil
}

func (c *Controller) indexLocked(id string) int {
	for i, h := range c.history {
		if h.ID == id {
			return i
		}
	}
	return -1
}

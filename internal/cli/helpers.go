package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/bringtolife/internal/credential"
	"github.com/mesh-intelligence/bringtolife/internal/gemini"
	"github.com/mesh-intelligence/bringtolife/internal/localstore"
	"github.com/mesh-intelligence/bringtolife/internal/session"
	"github.com/mesh-intelligence/bringtolife/pkg/sqlite"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// workspace is everything a command needs to work with the history. The
// caller must defer close.
type workspace struct {
	local    *localstore.Store
	resolver *credential.Resolver
	store    sqlite.Store
	ctrl     *session.Controller
}

// openLocal opens the key-value file and the credential resolver over it.
func (e *env) openLocal() (*localstore.Store, *credential.Resolver, error) {
	local, err := localstore.Open(
		filepath.Join(e.settings.DataDir, localstore.FileName),
		localstore.WithQuota(e.settings.LegacyQuotaBytes),
		localstore.WithLogger(e.logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}
	resolver := credential.NewResolver(local,
		credential.WithFallback(e.settings.APIKey),
		credential.WithLogger(e.logger),
	)
	return local, resolver, nil
}

// openWorkspace attaches the history store, builds the controller, and loads
// the history into it.
func (e *env) openWorkspace() (*workspace, error) {
	local, resolver, err := e.openLocal()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(types.Config{
		Backend:        types.BackendSQLite,
		DataDir:        e.settings.DataDir,
		MaxRecordBytes: e.settings.MaxRecordBytes,
	}, local, e.logger)
	if err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}

	client := gemini.NewClient(gemini.Config{
		BaseURL: e.settings.BaseURL,
		Model:   e.settings.Model,
	}, e.logger)

	ctrl := session.New(store, resolver, client, session.WithLogger(e.logger))
	if err := ctrl.Load(); err != nil {
		store.Detach()
		return nil, fmt.Errorf("load history: %w", err)
	}

	return &workspace{local: local, resolver: resolver, store: store, ctrl: ctrl}, nil
}

func (w *workspace) close() error {
	return w.store.Detach()
}

// readInput reads name, or stdin when name is "-".
func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, usageError{msg: fmt.Sprintf("file %q does not exist", name)}
	}
	return data, err
}

// writeOutput writes data to name, or to w when name is "" or "-".
func writeOutput(w io.Writer, name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

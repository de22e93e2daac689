// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package settings owns the persisted configuration file. All reads and
// mutations go through one Store handle, and every mutation is written back
// immediately, so the orchestrator, the daemon scheduler, and the config
// commands never disagree about the current settings.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

// Store is a concurrency-safe handle on the settings file.
type Store struct {
	mu   sync.Mutex
	path string
	s    types.Settings
}

// Load reads the settings file at path, merging its values over the
// defaults: keys absent from the file keep their default, keys present win
// even when zero-valued. A missing file is not an error; the file appears on
// the first mutation.
func Load(path string) (*Store, error) {
	s, err := read(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, s: s}, nil
}

func read(path string) (types.Settings, error) {
	s := types.DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return types.Settings{}, fmt.Errorf("parsing settings file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// First run, defaults only.
	default:
		return types.Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	return s, nil
}

// Path returns the settings file location.
func (st *Store) Path() string { return st.path }

// Settings returns a copy of the current settings.
func (st *Store) Settings() types.Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Update applies fn to the settings under the store lock and persists the
// result. fn must not block.
func (st *Store) Update(fn func(*types.Settings)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
	return st.save()
}

// Reload re-reads the settings file, replacing the in-memory state. The
// daemon calls this when the file changes under it, so edits made by hand
// or by another process take effect without a restart.
func (st *Store) Reload() error {
	s, err := read(st.path)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
	return nil
}

// Get returns one settings field by its file key, formatted as it would
// appear in the file.
func (st *Store) Get(key string) (string, error) {
	s := st.Settings()
	switch key {
	case "api_key":
		return s.APIKey, nil
	case "vault_root":
		return s.VaultRoot, nil
	case "sync_directory":
		return s.SyncDirectory, nil
	case "last_sync_time":
		return s.LastSyncTime, nil
	case "auto_sync":
		return strconv.FormatBool(s.AutoSync), nil
	case "sync_interval":
		return strconv.Itoa(s.SyncInterval), nil
	case "request_timeout":
		return strconv.Itoa(s.RequestTimeout), nil
	case "note_template":
		return s.NoteTemplate, nil
	default:
		return "", fmt.Errorf("unknown settings key %q", key)
	}
}

// Set parses and assigns one settings field by its file key, then persists.
// last_sync_time is maintained by the sync cycle and cannot be set here.
func (st *Store) Set(key, value string) error {
	switch key {
	case "api_key":
		return st.Update(func(s *types.Settings) { s.APIKey = value })
	case "vault_root":
		if value == "" {
			return fmt.Errorf("vault_root cannot be empty")
		}
		return st.Update(func(s *types.Settings) { s.VaultRoot = value })
	case "sync_directory":
		if value == "" {
			return fmt.Errorf("sync_directory cannot be empty")
		}
		return st.Update(func(s *types.Settings) { s.SyncDirectory = value })
	case "auto_sync":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		return st.Update(func(s *types.Settings) { s.AutoSync = b })
	case "sync_interval":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		return st.Update(func(s *types.Settings) { s.SyncInterval = n })
	case "request_timeout":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		return st.Update(func(s *types.Settings) { s.RequestTimeout = n })
	case "note_template":
		return st.Update(func(s *types.Settings) { s.NoteTemplate = value })
	case "last_sync_time":
		return fmt.Errorf("last_sync_time is maintained by sync and cannot be set")
	default:
		return fmt.Errorf("unknown settings key %q", key)
	}
}

// save writes the settings atomically next to the final path. The file can
// hold the API key, so it stays owner-readable only.
func (st *Store) save() error {
	data, err := yaml.Marshal(st.s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, st.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

// parseBool and friends are tiny wrappers so Set reports the offending key.
func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s wants true or false, got %q", key, value)
	}
	return b, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s wants a positive integer, got %q", key, value)
	}
	return n, nil
}

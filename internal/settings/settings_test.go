// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")

	st, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, types.DefaultSettings(), st.Settings())
	assert.Equal(t, path, st.Path())

	// No file is created until the first mutation.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vault_root: /data/vault\nsync_interval: 45\n"), 0o600))

	st, err := Load(path)
	require.NoError(t, err)

	s := st.Settings()
	assert.Equal(t, "/data/vault", s.VaultRoot)
	assert.Equal(t, 45, s.SyncInterval)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "Klarity", s.SyncDirectory)
	assert.Equal(t, 30, s.RequestTimeout)
	assert.False(t, s.AutoSync)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not settings\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing settings file")
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")

	st, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, st.Update(func(s *types.Settings) {
		s.LastSyncTime = "2024-06-01T12:00:00Z"
	}))

	// Visible to a fresh load, so another process sees the same state.
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T12:00:00Z", reloaded.Settings().LastSyncTime)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "settings file can hold the API key")
}

func TestUpdateCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "klarity-sync.yaml")

	st, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, st.Update(func(s *types.Settings) { s.AutoSync = true }))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Settings().AutoSync)
}

func TestSet(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		check  func(t *testing.T, s types.Settings)
		errMsg string
	}{
		{
			name:  "api key",
			key:   "api_key",
			value: "kl-0123456789abcdef0123456789abcdef",
			check: func(t *testing.T, s types.Settings) {
				assert.Equal(t, "kl-0123456789abcdef0123456789abcdef", s.APIKey)
			},
		},
		{
			name:  "auto sync true",
			key:   "auto_sync",
			value: "true",
			check: func(t *testing.T, s types.Settings) { assert.True(t, s.AutoSync) },
		},
		{
			name:  "sync interval",
			key:   "sync_interval",
			value: "45",
			check: func(t *testing.T, s types.Settings) { assert.Equal(t, 45, s.SyncInterval) },
		},
		{
			name:  "request timeout",
			key:   "request_timeout",
			value: "10",
			check: func(t *testing.T, s types.Settings) { assert.Equal(t, 10, s.RequestTimeout) },
		},
		{
			name:  "note template",
			key:   "note_template",
			value: "# {{title}}",
			check: func(t *testing.T, s types.Settings) { assert.Equal(t, "# {{title}}", s.NoteTemplate) },
		},
		{name: "interval zero", key: "sync_interval", value: "0", errMsg: "positive integer"},
		{name: "interval negative", key: "sync_interval", value: "-3", errMsg: "positive integer"},
		{name: "interval not a number", key: "sync_interval", value: "soon", errMsg: "positive integer"},
		{name: "auto sync garbage", key: "auto_sync", value: "maybe", errMsg: "true or false"},
		{name: "empty sync directory", key: "sync_directory", value: "", errMsg: "cannot be empty"},
		{name: "empty vault root", key: "vault_root", value: "", errMsg: "cannot be empty"},
		{name: "last sync time is read only", key: "last_sync_time", value: "2024-01-01T00:00:00Z", errMsg: "cannot be set"},
		{name: "unknown key", key: "color_scheme", value: "dark", errMsg: "unknown settings key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Load(filepath.Join(t.TempDir(), "klarity-sync.yaml"))
			require.NoError(t, err)

			err = st.Set(tt.key, tt.value)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.check(t, st.Settings())

			// Every successful Set persists.
			reloaded, err := Load(st.Path())
			require.NoError(t, err)
			tt.check(t, reloaded.Settings())
		})
	}
}

func TestSettingsReturnsCopy(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "klarity-sync.yaml"))
	require.NoError(t, err)

	s := st.Settings()
	s.APIKey = "scribbled"

	assert.Empty(t, st.Settings().APIKey, "mutating the returned copy must not touch the store")
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")

	st, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, st.Update(func(s *types.Settings) { s.SyncInterval = 10 }))

	// Another process rewrites the file behind the store's back.
	require.NoError(t, os.WriteFile(path, []byte("sync_interval: 90\nauto_sync: true\n"), 0o600))

	require.NoError(t, st.Reload())
	s := st.Settings()
	assert.Equal(t, 90, s.SyncInterval)
	assert.True(t, s.AutoSync)
	// Keys the new file omits fall back to defaults, not to the old state.
	assert.Equal(t, "Klarity", s.SyncDirectory)
}

func TestReloadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klarity-sync.yaml")

	st, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, st.Update(func(s *types.Settings) { s.SyncInterval = 10 }))

	require.NoError(t, os.WriteFile(path, []byte(":\n  - junk\n"), 0o600))

	require.Error(t, st.Reload())
	// The in-memory state survives a failed reload.
	assert.Equal(t, 10, st.Settings().SyncInterval)
}

func TestGetMirrorsSet(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "klarity-sync.yaml"))
	require.NoError(t, err)

	require.NoError(t, st.Set("sync_interval", "15"))
	require.NoError(t, st.Set("auto_sync", "true"))

	got, err := st.Get("sync_interval")
	require.NoError(t, err)
	assert.Equal(t, "15", got)

	got, err = st.Get("auto_sync")
	require.NoError(t, err)
	assert.Equal(t, "true", got)

	// Defaults read back without a prior Set.
	got, err = st.Get("sync_directory")
	require.NoError(t, err)
	assert.Equal(t, "Klarity", got)

	_, err = st.Get("no_such_key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown settings key")
}

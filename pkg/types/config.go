package types

import "time"

// Settings holds the persisted configuration for klarity-sync. The settings
// file is the single source of truth: the sync orchestrator reads it at the
// start of every cycle and writes last_sync_time back through the store, so
// external edits (or a concurrent CLI invocation) are picked up without a
// restart.
type Settings struct {
	// APIKey is the Klarity API key (min 32 characters). Usually supplied
	// via the secrets directory or KLARITY_SYNC_API_KEY rather than stored
	// in the settings file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// VaultRoot is the base directory of the markdown vault (default ".").
	VaultRoot string `json:"vault_root" yaml:"vault_root"`

	// SyncDirectory is the folder under VaultRoot that receives synced
	// notes (default "Klarity"). Created on demand.
	SyncDirectory string `json:"sync_directory" yaml:"sync_directory"`

	// LastSyncTime is the completion timestamp of the most recent sync
	// cycle that reached the write phase, RFC 3339. Empty before the
	// first sync.
	LastSyncTime string `json:"last_sync_time,omitempty" yaml:"last_sync_time,omitempty"`

	// AutoSync enables the periodic scheduler in daemon mode (default false).
	AutoSync bool `json:"auto_sync" yaml:"auto_sync"`

	// SyncInterval is the scheduler period in minutes (default 30).
	SyncInterval int `json:"sync_interval" yaml:"sync_interval"`

	// RequestTimeout is the HTTP request timeout in seconds (default 30).
	RequestTimeout int `json:"request_timeout" yaml:"request_timeout"`

	// NoteTemplate is the markdown template for rendered notes. Empty
	// selects the built-in default template.
	NoteTemplate string `json:"note_template,omitempty" yaml:"note_template,omitempty"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		VaultRoot:      ".",
		SyncDirectory:  "Klarity",
		AutoSync:       false,
		SyncInterval:   30,
		RequestTimeout: 30,
	}
}

// Interval returns the scheduler period as a duration. A non-positive
// configured value falls back to the default.
func (s Settings) Interval() time.Duration {
	if s.SyncInterval <= 0 {
		return time.Duration(DefaultSettings().SyncInterval) * time.Minute
	}
	return time.Duration(s.SyncInterval) * time.Minute
}

// Timeout returns the HTTP request timeout as a duration. A non-positive
// configured value falls back to the default.
func (s Settings) Timeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return time.Duration(DefaultSettings().RequestTimeout) * time.Second
	}
	return time.Duration(s.RequestTimeout) * time.Second
}

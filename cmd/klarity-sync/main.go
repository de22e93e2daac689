// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the klarity-sync CLI. It pulls
// transcription notes from a Klarity account and materializes them as
// markdown files in a local vault, either on demand or on a schedule.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbaaz/klarity-sync/internal/secrets"
	"github.com/arbaaz/klarity-sync/internal/settings"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// resolveAPIKey picks the key for this invocation. The flag wins, then the
// KLARITY_SYNC_API_KEY environment variable, then the secrets directory. An
// empty result defers to the settings file.
func resolveAPIKey(flagKey string) string {
	if flagKey != "" {
		return flagKey
	}
	// Read the environment directly. viper merges the settings file after
	// ReadInConfig, which would put a file-stored api_key ahead of the
	// secrets directory.
	if v := os.Getenv("KLARITY_SYNC_API_KEY"); v != "" {
		return v
	}
	if v, ok := loadedSecrets[secrets.KeyFile]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the klarity-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "klarity-sync",
	Short: "Sync Klarity transcription notes into a local vault",
	Long: `klarity-sync pulls transcription notes from a Klarity account and writes
each one as a markdown file in a vault directory. Notes are rendered through
a configurable template; file names derive from sanitized note titles.

Run 'sync' for a one-shot cycle, 'daemon' for scheduled syncing, 'config' to
manage settings, and 'journal' to inspect past cycles.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "settings file (default: ./klarity-sync.yaml or ~/.config/klarity-sync/klarity-sync.yaml)")
	rootCmd.PersistentFlags().String("vault", "", "vault root directory (overrides settings)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("klarity-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "klarity-sync"))
		}
	}

	viper.SetEnvPrefix("KLARITY_SYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using settings file:", viper.ConfigFileUsed())
	}
}

// settingsPath returns where this invocation's settings live: the explicit
// --config path, the discovered file, or the default location for a first
// run (the file appears there on the first mutation).
func settingsPath() string {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "klarity-sync.yaml"
	}
	return filepath.Join(home, ".config", "klarity-sync", "klarity-sync.yaml")
}

func openSettings() (*settings.Store, error) {
	return settings.Load(settingsPath())
}

// vaultFlag returns the --vault override, or "" when the stored setting
// applies.
func vaultFlag() string {
	v, _ := rootCmd.PersistentFlags().GetString("vault")
	return v
}

// vaultRoot resolves the vault root for this invocation: --vault wins over
// the stored setting. Journal and daemon state live under this directory.
func vaultRoot(store *settings.Store) string {
	if v := vaultFlag(); v != "" {
		return v
	}
	return store.Settings().VaultRoot
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/arbaaz/klarity-sync/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change sync settings",
	Long: `Config manages the persisted settings file. Every change is validated and
written back immediately.

Keys: api_key, vault_root, sync_directory, auto_sync, sync_interval,
request_timeout, note_template, last_sync_time (read-only).`,
}

// --- show subcommand ---

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print all settings with the API key redacted",
	RunE:  runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	s := store.Settings()
	s.APIKey = redactKey(s.APIKey)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Printf("# %s\n", store.Path())
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// --- get subcommand ---

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one settings value",
	RunE:  runConfigGet,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide a settings key, e.g. 'config get sync_interval'")
	}

	store, err := openSettings()
	if err != nil {
		return err
	}

	value, err := store.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

// --- set subcommand ---

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one settings value and persist it",
	RunE:  runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("provide a key and a value, e.g. 'config set auto_sync true'")
	}

	store, err := openSettings()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := store.Set(key, value); err != nil {
		return err
	}
	if key == "note_template" && value != "" {
		if err := render.Validate(value); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	shown := value
	if key == "api_key" {
		shown = redactKey(value)
	}
	fmt.Printf("%s = %s\n", key, shown)
	fmt.Fprintf(os.Stderr, "Saved to %s\n", store.Path())
	return nil
}

// redactKey keeps enough of the key to recognize it without exposing it.
func redactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func init() {
	configShowCmd.Flags().Bool("json", false, "output settings as JSON")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

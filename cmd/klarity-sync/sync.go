package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbaaz/klarity-sync/internal/journal"
	"github.com/arbaaz/klarity-sync/internal/render"
	"github.com/arbaaz/klarity-sync/internal/syncer"
	"github.com/arbaaz/klarity-sync/internal/vault"
	"github.com/arbaaz/klarity-sync/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle now",
	Long: `Sync fetches the current note set from Klarity and writes each note into
the vault's sync directory, overwriting files from earlier cycles in place.
Notes whose files cannot be written are reported and skipped; the cycle
continues with the rest.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("api-key", "", "Klarity API key (overrides settings, environment, and secrets)")
	syncCmd.Flags().String("dir", "", "vault-relative directory for note files (default from settings)")
	syncCmd.Flags().String("template", "", "file containing a note template (default from settings)")
	syncCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default from settings)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	flagKey, _ := cmd.Flags().GetString("api-key")
	dir, _ := cmd.Flags().GetString("dir")
	templatePath, _ := cmd.Flags().GetString("template")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	overrides := syncer.Overrides{
		APIKey:        resolveAPIKey(flagKey),
		VaultRoot:     vaultFlag(),
		SyncDirectory: dir,
		Timeout:       timeout,
	}
	if templatePath != "" {
		tmpl, err := render.LoadFile(templatePath)
		if err != nil {
			return err
		}
		if err := render.Validate(tmpl); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		overrides.Template = tmpl
	}

	jnl, err := journal.Open(vault.StateDir(vaultRoot(store)))
	if err != nil {
		return err
	}
	defer jnl.Close()

	s := syncer.New(store, jnl)
	s.Overrides = overrides

	sum, err := s.Run(context.Background(), types.TriggerManual, syncer.WriterNotifier(os.Stdout))
	if err != nil {
		return err
	}
	if sum.HasFailures() {
		return fmt.Errorf("%d note(s) failed to sync", len(sum.Failures))
	}
	return nil
}

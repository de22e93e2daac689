package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbaaz/klarity-sync/internal/journal"
	"github.com/arbaaz/klarity-sync/internal/vault"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the history of sync cycles",
	Long: `Journal lists recent sync cycles with their trigger, outcome, and note
counts. Use --failures with a cycle id to see which notes failed and why,
or --prune to trim old history.`,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().Int("limit", 20, "number of cycles to list")
	journalCmd.Flags().Int64("failures", 0, "show per-note failures for the given cycle id")
	journalCmd.Flags().Int("prune", 0, "delete all but the newest N cycles")
	journalCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	jnl, err := journal.Open(vault.StateDir(vaultRoot(store)))
	if err != nil {
		return err
	}
	defer jnl.Close()

	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if keep, _ := cmd.Flags().GetInt("prune"); keep > 0 {
		deleted, err := jnl.Prune(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d cycle(s), kept the newest %d.\n", deleted, keep)
		return nil
	}

	if cycleID, _ := cmd.Flags().GetInt64("failures"); cycleID > 0 {
		return printFailures(ctx, jnl, cycleID, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := jnl.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No sync cycles recorded yet.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-6s  %-10s  %-20s  %-9s  %-7s  %-6s  %s\n",
		"ID", "Trigger", "Started", "Duration", "Written", "Failed", "Outcome")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))

	for _, e := range entries {
		outcome := "ok"
		if !e.Completed() {
			outcome = e.ErrorKind + ": " + e.Error
			if len(outcome) > 40 {
				outcome = outcome[:37] + "..."
			}
		}
		fmt.Fprintf(os.Stdout, "%-6d  %-10s  %-20s  %-9s  %-7d  %-6d  %s\n",
			e.ID,
			e.Trigger,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
			e.Written,
			e.Failed,
			outcome)
	}
	return nil
}

func printFailures(ctx context.Context, jnl *journal.Journal, cycleID int64, jsonOutput bool) error {
	failures, err := jnl.Failures(ctx, cycleID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(failures)
	}

	if len(failures) == 0 {
		fmt.Printf("No note failures recorded for cycle %d.\n", cycleID)
		return nil
	}

	for _, f := range failures {
		fmt.Fprintf(os.Stdout, "%s  %q  %s\n", f.NoteID, f.Title, f.Reason)
	}
	return nil
}

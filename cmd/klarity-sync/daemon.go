package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arbaaz/klarity-sync/internal/daemon"
	"github.com/arbaaz/klarity-sync/internal/dashboard"
	"github.com/arbaaz/klarity-sync/internal/journal"
	"github.com/arbaaz/klarity-sync/internal/syncer"
	"github.com/arbaaz/klarity-sync/internal/vault"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync on a schedule until interrupted",
	Long: `Daemon runs a startup sync shortly after launch, then keeps syncing at the
configured interval while auto_sync is enabled. Settings changes are picked
up without a restart. Stop with Ctrl+C; an in-flight cycle finishes first.

With --dashboard, a WebSocket server broadcasts live cycle events:
  sync_started, note_synced, note_failed, sync_complete, sync_error

Connect with a WebSocket client:
  ws://localhost:8686/ws`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("dashboard", "", "serve a live WebSocket dashboard on this address (e.g. :8686)")
	daemonCmd.Flags().String("log-file", "", "also write logs to this file, with rotation")
	daemonCmd.Flags().Duration("startup-delay", 0, "wait before the startup sync (default 1s)")

	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}

	logOut := io.Writer(os.Stderr)
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		logOut = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	jnl, err := journal.Open(vault.StateDir(vaultRoot(store)))
	if err != nil {
		return err
	}
	defer jnl.Close()

	s := syncer.New(store, jnl)
	s.Logger = log.New(logOut, "[sync] ", log.LstdFlags)
	s.Overrides.APIKey = resolveAPIKey("")
	s.Overrides.VaultRoot = vaultFlag()

	var notifier syncer.Notifier
	if addr, _ := cmd.Flags().GetString("dashboard"); addr != "" {
		dash := dashboard.NewServer(&dashboard.Config{
			Addr:   addr,
			Logger: log.New(logOut, "[dashboard] ", log.LstdFlags),
		})
		if err := dash.Start(); err != nil {
			return err
		}
		defer func() {
			if err := dash.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error during dashboard shutdown: %v\n", err)
			}
		}()
		notifier = dash.Notifier()
	}

	config := daemon.DefaultConfig()
	config.Logger = log.New(logOut, "[daemon] ", log.LstdFlags)
	if delay, _ := cmd.Flags().GetDuration("startup-delay"); delay > 0 {
		config.StartupDelay = delay
	}

	d, err := daemon.NewWithConfig(s, store, notifier, config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return d.Start(ctx)
}

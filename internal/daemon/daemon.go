// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package daemon schedules unattended sync cycles.
//
// The daemon:
// 1. Fires a one-shot startup sync shortly after launch
// 2. Runs scheduled syncs at the configured interval while auto sync is on
// 3. Watches the settings file and reschedules when the schedule changes
// 4. Hands every trigger to the shared syncer, which rejects overlaps
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arbaaz/klarity-sync/internal/klarity"
	"github.com/arbaaz/klarity-sync/internal/settings"
	"github.com/arbaaz/klarity-sync/internal/syncer"
	"github.com/arbaaz/klarity-sync/pkg/types"
)

// Config holds configuration for the daemon.
type Config struct {
	// StartupDelay is how long to wait after Start before the startup sync.
	StartupDelay time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StartupDelay: time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Runner starts sync cycles. *syncer.Syncer is the production implementation.
type Runner interface {
	Run(ctx context.Context, trigger types.Trigger, n syncer.Notifier) (types.Summary, error)
}

// Daemon drives the syncer from timers and settings changes.
type Daemon struct {
	runner   Runner
	store    *settings.Store
	notifier syncer.Notifier
	config   *Config

	watcher    *fsnotify.Watcher
	reschedule chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon with the default configuration. Use Start to begin
// scheduling.
func New(runner Runner, store *settings.Store, notifier syncer.Notifier) (*Daemon, error) {
	return NewWithConfig(runner, store, notifier, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(runner Runner, store *settings.Store, notifier syncer.Notifier, config *Config) (*Daemon, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating settings watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		runner:     runner,
		store:      store,
		notifier:   notifier,
		config:     config,
		watcher:    watcher,
		reschedule: make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start runs the daemon until ctx is cancelled or Stop is called. It blocks.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("starting daemon")

	// The settings file is replaced by rename on every save, so the watch
	// goes on its directory, not the file itself.
	dir := filepath.Dir(d.store.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching settings directory: %w", err)
	}

	d.config.Logger.Printf("watching settings file %s", d.store.Path())
	d.logSchedule()

	d.wg.Add(2)
	go d.runScheduler()
	go d.watchSettings()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down. An in-flight sync cycle runs to completion;
// Stop waits for it rather than cancelling it.
func (d *Daemon) Stop() error {
	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("closing settings watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("daemon stopped")
	return nil
}

// runScheduler owns the startup timer and the interval ticker. Triggers run
// inline, so the scheduler itself can never overlap its own cycles.
func (d *Daemon) runScheduler() {
	defer d.wg.Done()

	startup := time.NewTimer(d.config.StartupDelay)
	defer startup.Stop()

	ticker := time.NewTicker(d.store.Settings().Interval())
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-startup.C:
			d.runCycle(types.TriggerStartup)

		case <-ticker.C:
			// The ticker always runs; the flag decides whether a tick
			// becomes a cycle. Rescheduling stays a single Reset this way.
			if d.store.Settings().AutoSync {
				d.runCycle(types.TriggerScheduled)
			}

		case <-d.reschedule:
			ticker.Reset(d.store.Settings().Interval())
			d.logSchedule()
		}
	}
}

// watchSettings reloads the store when the settings file changes and nudges
// the scheduler when the change affects the timer.
func (d *Daemon) watchSettings() {
	defer d.wg.Done()

	base := filepath.Base(d.store.Path())

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// The directory also sees temp files from atomic saves.
			if filepath.Base(event.Name) != base {
				continue
			}

			before := d.store.Settings()
			if err := d.store.Reload(); err != nil {
				d.config.Logger.Printf("reloading settings: %v", err)
				continue
			}
			after := d.store.Settings()

			if before.AutoSync != after.AutoSync || before.SyncInterval != after.SyncInterval {
				select {
				case d.reschedule <- struct{}{}:
				default:
				}
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("settings watcher error: %v", err)
		}
	}
}

// runCycle hands one trigger to the syncer. The syncer logs failures in
// detail; the daemon adds the trigger-level context.
func (d *Daemon) runCycle(trigger types.Trigger) {
	// Cycles use a fresh context: daemon shutdown waits for a running
	// cycle instead of cancelling it mid-write.
	_, err := d.runner.Run(context.Background(), trigger, d.notifier)
	switch {
	case err == nil:
	case errors.Is(err, syncer.ErrCycleRunning):
		d.config.Logger.Printf("%s trigger skipped, a cycle is already running", trigger)
	case klarity.Transient(err):
		d.config.Logger.Printf("%s sync failed with a transient error, the next trigger will retry", trigger)
	}
}

func (d *Daemon) logSchedule() {
	s := d.store.Settings()
	if s.AutoSync {
		d.config.Logger.Printf("auto sync every %s", s.Interval())
	} else {
		d.config.Logger.Println("auto sync disabled, waiting for settings change")
	}
}

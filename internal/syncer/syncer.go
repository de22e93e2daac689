// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncer drives one fetch-render-write cycle end to end: pull the
// note set from Klarity, materialize each note in the vault, track partial
// failures, then advance the persisted last sync time and journal the
// outcome. Manual runs, the daemon scheduler, and the startup run all come
// through the same entry point.
package syncer

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/arbaaz/klarity-sync/internal/journal"
	"github.com/arbaaz/klarity-sync/internal/klarity"
	"github.com/arbaaz/klarity-sync/internal/render"
	"github.com/arbaaz/klarity-sync/internal/settings"
	"github.com/arbaaz/klarity-sync/internal/vault"
	"github.com/arbaaz/klarity-sync/pkg/types"
)

// ErrCycleRunning is returned when a trigger fires while a cycle is still in
// flight. Overlapping triggers are rejected, not queued; the caller waits
// for its next trigger.
var ErrCycleRunning = errors.New("a sync cycle is already running")

// Overrides are per-invocation substitutes for stored settings, set from
// command-line flags or the environment. They apply to the cycle's snapshot
// only and never touch the settings file.
type Overrides struct {
	APIKey        string
	VaultRoot     string
	SyncDirectory string
	Template      string // template text, not a path
	Timeout       time.Duration
}

// apply lays the non-zero overrides over a settings snapshot.
func (o Overrides) apply(cfg *types.Settings) {
	if o.APIKey != "" {
		cfg.APIKey = o.APIKey
	}
	if o.VaultRoot != "" {
		cfg.VaultRoot = o.VaultRoot
	}
	if o.SyncDirectory != "" {
		cfg.SyncDirectory = o.SyncDirectory
	}
	if o.Template != "" {
		cfg.NoteTemplate = o.Template
	}
}

// Syncer runs sync cycles. One Syncer guards one vault: the running flag
// ensures a scheduled tick cannot start a second cycle under a manual one.
type Syncer struct {
	// Store supplies settings at the start of every cycle and receives the
	// last sync time afterwards.
	Store *settings.Store

	// Journal records cycle outcomes. Nil disables journaling.
	Journal *journal.Journal

	// Logger receives cycle activity. Defaults to stderr in New.
	Logger *log.Logger

	// Overrides take precedence over stored settings for every cycle this
	// Syncer runs.
	Overrides Overrides

	fetch   func(ctx context.Context, client *http.Client, apiKey string) ([]types.Note, error)
	running atomic.Bool
}

// New returns a Syncer over the given settings store and journal. jnl may be
// nil.
func New(store *settings.Store, jnl *journal.Journal) *Syncer {
	return &Syncer{
		Store:   store,
		Journal: jnl,
		Logger:  log.New(os.Stderr, "[sync] ", log.LstdFlags),
		fetch:   klarity.FetchNotes,
	}
}

// Running reports whether a cycle is currently in flight.
func (s *Syncer) Running() bool {
	return s.running.Load()
}

// Run executes one sync cycle. Notes are processed strictly in the order the
// service returned them; a note that fails to write is recorded and skipped,
// and the cycle carries on. The persisted last sync time advances whenever
// the cycle reaches the write phase, even with per-note failures, so an
// aborted fetch is the only outcome that leaves it untouched.
//
// A second Run while one is in flight fails immediately with
// ErrCycleRunning. n may be nil.
func (s *Syncer) Run(ctx context.Context, trigger types.Trigger, n Notifier) (types.Summary, error) {
	if n == nil {
		n = NopNotifier{}
	}
	if !s.running.CompareAndSwap(false, true) {
		return types.Summary{}, ErrCycleRunning
	}
	defer s.running.Store(false)

	started := time.Now()
	cfg := s.Store.Settings()
	s.Overrides.apply(&cfg)

	// No key means nothing to try; bail before announcing a cycle.
	if cfg.APIKey == "" {
		s.Logger.Printf("cycle skipped (%s): %v", trigger, klarity.ErrNoKey)
		s.recordAborted(ctx, trigger, started, klarity.ErrNoKey)
		n.SyncFailed(trigger, klarity.ErrNoKey)
		return types.Summary{}, klarity.ErrNoKey
	}

	s.Logger.Printf("cycle started (%s)", trigger)
	n.SyncStarted(trigger)

	timeout := cfg.Timeout()
	if s.Overrides.Timeout > 0 {
		timeout = s.Overrides.Timeout
	}
	client := &http.Client{Timeout: timeout}
	notes, err := s.fetch(ctx, client, cfg.APIKey)
	if err != nil {
		s.Logger.Printf("fetch failed (%s): %v", klarity.KindOf(err), err)
		s.recordAborted(ctx, trigger, started, err)
		n.SyncFailed(trigger, err)
		return types.Summary{}, err
	}

	tmpl := cfg.NoteTemplate
	if tmpl == "" {
		tmpl = render.DefaultTemplate
	}

	writer := vault.NewWriter(cfg.VaultRoot)
	sum := types.Summary{Trigger: trigger, StartedAt: started}
	total := len(notes)

	for _, note := range notes {
		content := render.Render(tmpl, note)
		rel := vault.NotePath(cfg.SyncDirectory, note.Title)

		if err := writer.Write(rel, content); err != nil {
			s.Logger.Printf("note %s failed: %v", note.ID, err)
			sum.Failures = append(sum.Failures, types.NoteFailure{
				NoteID: note.ID,
				Title:  note.Title,
				Reason: err.Error(),
			})
			n.NoteFailed(note, err.Error())
			continue
		}

		sum.Written++
		n.NoteSynced(note, sum.Written, total)
	}

	sum.FinishedAt = time.Now()

	// The cycle ran, so the last sync time advances even when individual
	// notes failed.
	if err := s.Store.Update(func(st *types.Settings) {
		st.LastSyncTime = sum.FinishedAt.UTC().Format(time.RFC3339)
	}); err != nil {
		s.Logger.Printf("warning: persisting last sync time failed: %v", err)
	}

	if s.Journal != nil {
		if err := s.Journal.RecordSummary(ctx, sum); err != nil {
			s.Logger.Printf("warning: journaling cycle failed: %v", err)
		}
	}

	s.Logger.Printf("cycle finished: %d/%d notes synced, %d failed (%s)",
		sum.Written, sum.Total(), len(sum.Failures), sum.Duration().Round(time.Millisecond))
	n.SyncCompleted(sum)

	return sum, nil
}

func (s *Syncer) recordAborted(ctx context.Context, trigger types.Trigger, started time.Time, err error) {
	if s.Journal == nil {
		return
	}
	if jerr := s.Journal.RecordAborted(ctx, trigger, started, string(klarity.KindOf(err)), err.Error()); jerr != nil {
		s.Logger.Printf("warning: journaling aborted cycle failed: %v", jerr)
	}
}

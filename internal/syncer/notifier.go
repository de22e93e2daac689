// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"fmt"
	"io"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

// Notifier receives cycle status events. The CLI prints them, the daemon
// forwards them to its log and the dashboard. Implementations must not
// block; a slow notifier stalls the cycle.
type Notifier interface {
	// SyncStarted fires once per cycle, before the fetch.
	SyncStarted(trigger types.Trigger)

	// NoteSynced fires after each note reaches the vault, with running
	// progress counts.
	NoteSynced(n types.Note, processed, total int)

	// NoteFailed fires for each note that could not be written. The cycle
	// continues.
	NoteFailed(n types.Note, reason string)

	// SyncCompleted fires once the cycle reaches the end of the write
	// phase, failures included.
	SyncCompleted(sum types.Summary)

	// SyncFailed fires when the cycle aborts before writing anything.
	SyncFailed(trigger types.Trigger, err error)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) SyncStarted(types.Trigger)       {}
func (NopNotifier) NoteSynced(types.Note, int, int) {}
func (NopNotifier) NoteFailed(types.Note, string)   {}
func (NopNotifier) SyncCompleted(types.Summary)     {}
func (NopNotifier) SyncFailed(types.Trigger, error) {}

// MultiNotifier fans every event out to each notifier in order.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

type multiNotifier []Notifier

func (m multiNotifier) SyncStarted(t types.Trigger) {
	for _, n := range m {
		n.SyncStarted(t)
	}
}

func (m multiNotifier) NoteSynced(note types.Note, processed, total int) {
	for _, n := range m {
		n.NoteSynced(note, processed, total)
	}
}

func (m multiNotifier) NoteFailed(note types.Note, reason string) {
	for _, n := range m {
		n.NoteFailed(note, reason)
	}
}

func (m multiNotifier) SyncCompleted(sum types.Summary) {
	for _, n := range m {
		n.SyncCompleted(sum)
	}
}

func (m multiNotifier) SyncFailed(t types.Trigger, err error) {
	for _, n := range m {
		n.SyncFailed(t, err)
	}
}

// WriterNotifier prints per-note progress lines and a closing summary to w,
// the format the sync command shows on stdout.
func WriterNotifier(w io.Writer) Notifier {
	return &writerNotifier{w: w}
}

type writerNotifier struct {
	w io.Writer
}

func (n *writerNotifier) SyncStarted(trigger types.Trigger) {
	fmt.Fprintf(n.w, "syncing notes (%s)\n", trigger)
}

func (n *writerNotifier) NoteSynced(note types.Note, processed, total int) {
	fmt.Fprintf(n.w, "synced:  %s (%d/%d)\n", note.Title, processed, total)
}

func (n *writerNotifier) NoteFailed(note types.Note, reason string) {
	fmt.Fprintf(n.w, "failed:  %s (%s)\n", note.Title, reason)
}

func (n *writerNotifier) SyncCompleted(sum types.Summary) {
	if sum.HasFailures() {
		fmt.Fprintf(n.w, "\n%d/%d notes synced, %d failed\n", sum.Written, sum.Total(), len(sum.Failures))
		return
	}
	fmt.Fprintf(n.w, "\n%d/%d notes synced\n", sum.Written, sum.Total())
}

func (n *writerNotifier) SyncFailed(trigger types.Trigger, err error) {
	fmt.Fprintf(n.w, "sync failed: %v\n", err)
}

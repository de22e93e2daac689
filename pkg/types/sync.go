// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Trigger identifies what started a sync cycle.
type Trigger string

const (
	// TriggerManual is a cycle started by the sync command or a dashboard
	// request.
	TriggerManual Trigger = "manual"

	// TriggerScheduled is a cycle started by the daemon scheduler.
	TriggerScheduled Trigger = "scheduled"

	// TriggerStartup is the cycle the daemon runs shortly after launch.
	TriggerStartup Trigger = "startup"
)

// NoteFailure records one note that was fetched but could not be written.
type NoteFailure struct {
	// NoteID is the service identifier of the failed note.
	NoteID string `json:"note_id" yaml:"note_id"`

	// Title is the note title, useful for locating the note upstream.
	Title string `json:"title" yaml:"title"`

	// Reason is the write error message.
	Reason string `json:"reason" yaml:"reason"`
}

// Summary holds the outcome of one sync cycle. A cycle that fails before
// fetching notes (missing key, network error) never produces a Summary;
// those surface as errors instead.
type Summary struct {
	// Trigger is what started the cycle.
	Trigger Trigger `json:"trigger" yaml:"trigger"`

	// StartedAt is when the cycle began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// FinishedAt is when the cycle completed.
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Written counts notes materialized in the vault this cycle.
	Written int `json:"written" yaml:"written"`

	// Failures lists notes that could not be written. The cycle continues
	// past individual failures, so this can be non-empty while Written > 0.
	Failures []NoteFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Total returns the number of notes fetched from the service.
func (s Summary) Total() int {
	return s.Written + len(s.Failures)
}

// HasFailures reports whether any notes failed to write.
func (s Summary) HasFailures() bool {
	return len(s.Failures) > 0
}

// Duration returns the wall-clock length of the cycle.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

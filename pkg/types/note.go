// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for klarity-sync: the remote
// Note record, the process-wide Settings, and the per-cycle Summary exchanged
// between the sync core and its status surfaces.
package types

// Note is one transcription record returned by the Klarity API. Notes are
// immutable once fetched: the orchestrator renders each one to disk and
// discards it at the end of the cycle.
//
// CreatedAt and UpdatedAt stay exactly as the API sent them (ISO-8601
// strings). They are substituted into templates verbatim, never reparsed,
// so non-canonical server formatting survives the round trip.
type Note struct {
	// ID is the opaque unique identifier assigned by the service.
	ID string `json:"id" yaml:"id"`

	// Title is the human-entered note title. Not guaranteed to be unique
	// or filesystem-safe; see vault.Sanitize.
	Title string `json:"title" yaml:"title"`

	// Transcription is the free-text body of the note.
	Transcription string `json:"transcription" yaml:"transcription"`

	// CreatedAt is the creation timestamp as an ISO-8601 string.
	CreatedAt string `json:"createdAt" yaml:"createdAt"`

	// UpdatedAt is the last-modification timestamp as an ISO-8601 string.
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
}

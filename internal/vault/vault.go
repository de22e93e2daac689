// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vault writes rendered notes into the local markdown vault. Writes
// are atomic (temp file then rename) so a crash mid-cycle never leaves a
// half-written note behind.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a failure to materialize one note file. The sync cycle
// records it and continues with the next note.
type WriteError struct {
	// Path is the vault-relative path of the attempted write.
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StateDir returns the hidden directory inside the vault where klarity-sync
// keeps its own state (cycle journal, daemon log). Kept under the vault root
// so state travels with the vault.
func StateDir(root string) string {
	return filepath.Join(root, ".klarity-sync")
}

// Writer materializes note files inside a vault rooted at one directory.
// All paths handed to Write are vault-relative.
type Writer struct {
	root string
}

// NewWriter returns a Writer for the vault rooted at root. The root itself
// is created lazily by the first Write.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the vault root directory.
func (w *Writer) Root() string { return w.root }

// Write creates or overwrites the file at the vault-relative relPath with
// content. The parent directory is created if absent. Overwrites replace the
// full content at the same path; no duplicate file is ever created. Failures
// come back as *WriteError.
func (w *Writer) Write(relPath, content string) error {
	if !filepath.IsLocal(relPath) {
		return &WriteError{Path: relPath, Err: fmt.Errorf("path escapes vault root")}
	}
	dest := filepath.Join(w.root, relPath)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &WriteError{Path: relPath, Err: fmt.Errorf("creating directory: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sync-*.tmp")
	if err != nil {
		return &WriteError{Path: relPath, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.WriteString(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: relPath, Err: fmt.Errorf("writing content: %w", writeErr)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: relPath, Err: fmt.Errorf("closing temp file: %w", closeErr)}
	}

	// CreateTemp opens 0600; published notes should be world-readable.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: relPath, Err: fmt.Errorf("setting permissions: %w", err)}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: relPath, Err: fmt.Errorf("renaming temp file: %w", err)}
	}
	return nil
}

package vault

import (
	"path/filepath"
	"strings"
)

// Sanitize maps a note title to a filesystem-safe path segment. Each of the
// characters \ / : * ? " < > | becomes a hyphen; every other character, and
// the overall length, is preserved. Titles that sanitize to the same segment
// collide: the later note overwrites the earlier one, with no suffixing.
func Sanitize(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
}

// NotePath returns the vault-relative markdown path for a note title inside
// dir.
func NotePath(dir, title string) string {
	return filepath.Join(dir, Sanitize(title)+".md")
}

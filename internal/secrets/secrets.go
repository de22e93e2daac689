// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files, one
// secret per file: the filename is the key name, the trimmed contents are the
// value. Keeping the API key out of the settings file lets the settings file
// be committed or shared safely.
//
// klarity-sync looks for the file named klarity-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KeyFile is the filename that holds the Klarity API key.
const KeyFile = "klarity-api-key"

// Load reads every regular file in dir into a key-to-value map. A missing
// directory yields an empty map, not an error. Dotfiles and subdirectories
// are ignored; files that cannot be read produce a warning on warn and are
// skipped.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	loaded := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			loaded[name] = value
		}
	}

	return loaded, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns notes into markdown documents by literal token
// substitution. Templates are plain strings carrying {{field}} tokens; there
// is no conditional logic, no escaping, and no nesting.
package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

// DefaultTemplate is the built-in note layout: YAML front matter carrying the
// service identifiers, the title as a heading, then the transcription body.
const DefaultTemplate = `---
id: {{id}}
created: {{createdAt}}
updated: {{updatedAt}}
---

# {{title}}

{{transcription}}
`

// tokens are the substitutions Render performs, in documentation order.
var tokens = []string{"{{id}}", "{{title}}", "{{transcription}}", "{{createdAt}}", "{{updatedAt}}"}

// Render substitutes the note's fields for the tokens {{id}}, {{title}},
// {{transcription}}, {{createdAt}} and {{updatedAt}} in tmpl, replacing every
// occurrence. Substitution is one simultaneous pass: token-like text inside a
// field value is emitted literally, never re-expanded. Unrecognized tokens
// pass through unchanged, and absent fields substitute as empty strings.
func Render(tmpl string, n types.Note) string {
	r := strings.NewReplacer(
		"{{id}}", n.ID,
		"{{title}}", n.Title,
		"{{transcription}}", n.Transcription,
		"{{createdAt}}", n.CreatedAt,
		"{{updatedAt}}", n.UpdatedAt,
	)
	return r.Replace(tmpl)
}

// Validate checks that tmpl carries at least one known token. A template
// without any renders the same file for every note; callers surface this as
// a warning rather than refusing the template.
func Validate(tmpl string) error {
	for _, tok := range tokens {
		if strings.Contains(tmpl, tok) {
			return nil
		}
	}
	return fmt.Errorf("template contains none of the tokens %s", strings.Join(tokens, ", "))
}

// LoadFile reads a template override from path. A file that is empty or
// whitespace-only is rejected so a truncated template cannot silently wipe
// note bodies.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("template file %s is empty", path)
	}
	return string(data), nil
}

package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

func TestRender(t *testing.T) {
	note := types.Note{
		ID:            "n-42",
		Title:         "Standup",
		Transcription: "we shipped it",
		CreatedAt:     "2024-03-01T09:00:00Z",
		UpdatedAt:     "2024-03-02T10:30:00Z",
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{
			name: "all tokens",
			tmpl: "{{id}}|{{title}}|{{transcription}}|{{createdAt}}|{{updatedAt}}",
			want: "n-42|Standup|we shipped it|2024-03-01T09:00:00Z|2024-03-02T10:30:00Z",
		},
		{
			name: "repeated token replaced everywhere",
			tmpl: "{{title}} {{title}} {{title}}",
			want: "Standup Standup Standup",
		},
		{
			name: "unknown token preserved",
			tmpl: "{{title}} {{tags}}",
			want: "Standup {{tags}}",
		},
		{
			name: "no tokens",
			tmpl: "plain text",
			want: "plain text",
		},
		{
			name: "empty template",
			tmpl: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tmpl, note)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderZeroValueNote(t *testing.T) {
	got := Render("[{{id}}][{{title}}][{{transcription}}]", types.Note{})
	if got != "[][][]" {
		t.Errorf("zero-value note should substitute empty strings, got %q", got)
	}
}

func TestRenderIsPure(t *testing.T) {
	note := types.Note{ID: "1", Title: "A", Transcription: "body"}
	tmpl := "# {{title}}\n\n{{transcription}}\n"

	first := Render(tmpl, note)
	second := Render(tmpl, note)
	if first != second {
		t.Errorf("two renders differ: %q vs %q", first, second)
	}
}

func TestRenderDoesNotReexpandValues(t *testing.T) {
	// A token inside a field value must come out literally, not as a second
	// round of substitution.
	note := types.Note{
		ID:            "1",
		Title:         "Meeting",
		Transcription: "remember {{title}} renders literally",
	}

	got := Render("{{transcription}}", note)
	want := "remember {{title}} renders literally"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderDefaultTemplate(t *testing.T) {
	note := types.Note{
		ID:            "1",
		Title:         "A",
		Transcription: "x",
		CreatedAt:     "2024-01-01T00:00:00Z",
		UpdatedAt:     "2024-01-01T00:00:00Z",
	}

	got := Render(DefaultTemplate, note)

	for _, want := range []string{
		"id: 1",
		"created: 2024-01-01T00:00:00Z",
		"updated: 2024-01-01T00:00:00Z",
		"# A",
		"x",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("default template output missing %q:\n%s", want, got)
		}
	}
	if !strings.HasPrefix(got, "---\n") {
		t.Errorf("default template output should open a front matter block:\n%s", got)
	}
	if strings.Contains(got, "{{") {
		t.Errorf("default template output should contain no leftover tokens:\n%s", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "note.md.tmpl")
	if err := os.WriteFile(path, []byte("# {{title}}\n"), 0o644); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if got != "# {{title}}\n" {
		t.Errorf("LoadFile() = %q", got)
	}
}

func TestLoadFileEmpty(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "empty.tmpl")
	if err := os.WriteFile(path, []byte("  \n\t\n"), 0o644); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject a whitespace-only template")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.tmpl")); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		wantErr bool
	}{
		{"default template", DefaultTemplate, false},
		{"single token", "{{id}}", false},
		{"token mid-text", "note {{title}} synced", false},
		{"no tokens", "the same file every time", true},
		{"spaced braces do not count", "{{ title }}", true},
		{"unknown token only", "{{body}}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tmpl)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.tmpl, err, tt.wantErr)
			}
		})
	}
}

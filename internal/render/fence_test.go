package render

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRewriteFences(t *testing.T) {
	t.Parallel()

	h := newHighlighter(DefaultStyle, discardLogger())

	tests := []struct {
		name       string
		input      string
		wantOut    string
		wantBlocks int
	}{
		{
			name:       "no marker returns input unchanged",
			input:      "plain\ntext",
			wantOut:    "plain\ntext",
			wantBlocks: 0,
		},
		{
			name:       "closed fence becomes placeholder line",
			input:      "a\n```go\nx := 1\n```\nb",
			wantOut:    "a\n\n" + fencePlaceholder(0) + "\n\nb",
			wantBlocks: 1,
		},
		{
			name:       "unterminated fence is dropped",
			input:      "a\n```\nlost\nalso lost",
			wantOut:    "a",
			wantBlocks: 0,
		},
		{
			name:       "second fence unterminated keeps the first",
			input:      "```\none\n```\nmid\n```\ntwo",
			wantOut:    "\n" + fencePlaceholder(0) + "\n\nmid",
			wantBlocks: 1,
		},
		{
			name:       "indented marker is not a fence",
			input:      "  ```\ncode\n  ```",
			wantOut:    "  ```\ncode\n  ```",
			wantBlocks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, blocks := rewriteFences(tt.input, h)
			if out != tt.wantOut {
				t.Errorf("out = %q, want %q", out, tt.wantOut)
			}
			if len(blocks) != tt.wantBlocks {
				t.Errorf("len(blocks) = %d, want %d", len(blocks), tt.wantBlocks)
			}
		})
	}
}

func TestRewriteFences_TrimsSurroundingNewlines(t *testing.T) {
	t.Parallel()

	h := newHighlighter(DefaultStyle, discardLogger())
	_, blocks := rewriteFences("```\n\n\n  indented\n\n```", h)
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	want := h.Highlight("  indented", defaultFenceTag)
	if blocks[0] != want {
		t.Errorf("block = %q, want %q", blocks[0], want)
	}
}

func TestHighlighter_Highlight(t *testing.T) {
	t.Parallel()

	h := newHighlighter(DefaultStyle, discardLogger())
	code := "def f():\n    return 1"

	python := h.Highlight(code, "python")
	plain := h.Highlight(code, "text")

	if !strings.Contains(python, `class="chroma"`) {
		t.Errorf("python output missing chroma wrapper: %s", python)
	}
	if python == plain {
		t.Error("python output should differ from plain text output")
	}

	unknown := h.Highlight(code, "no-such-language")
	if !strings.Contains(unknown, "return 1") {
		t.Errorf("fallback output lost code: %s", unknown)
	}
}

func TestNewHighlighter_UnknownStyleFallsBack(t *testing.T) {
	t.Parallel()

	h := newHighlighter("no-such-style", discardLogger())
	if h.style == nil {
		t.Fatal("style should fall back, got nil")
	}
}

func TestRestoreFences(t *testing.T) {
	t.Parallel()

	blocks := []string{"<pre>A</pre>", "<pre>B</pre>"}
	in := "<p>" + fencePlaceholder(0) + "</p>\n<li>" + fencePlaceholder(1) + "</li>"
	got := restoreFences(in, blocks)
	want := "<pre>A</pre>\n<li><pre>B</pre></li>"
	if got != want {
		t.Errorf("restoreFences() = %q, want %q", got, want)
	}
}

func TestRenderer_Render_IgnoresForgedPlaceholders(t *testing.T) {
	t.Parallel()

	forged := fencePlaceholder(0)
	input := "Forged " + forged + " here.\n\n```go\nx := 1\n```\n"

	got, err := New().Render(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(got, `class="chroma"`); n != 1 {
		t.Errorf("highlighted block appears %d times, want 1\ngot: %s", n, got)
	}
	if !strings.Contains(got, "<p>Forged 0 here.</p>") {
		t.Errorf("forged placeholder not reduced to plain text\ngot: %s", got)
	}
	if strings.ContainsAny(got, fenceStartPlaceholder+fenceEndPlaceholder) {
		t.Errorf("placeholder characters leaked into output\ngot: %s", got)
	}
}

func TestStripPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "plain", want: "plain"},
		{in: "a" + fencePlaceholder(3) + "b", want: "a3b"},
		{in: fenceEndPlaceholder + fenceStartPlaceholder, want: ""},
	}
	for _, tt := range tests {
		if got := stripPlaceholders(tt.in); got != tt.want {
			t.Errorf("stripPlaceholders(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

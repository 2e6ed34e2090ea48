package render

import (
	"strings"
	"testing"
)

func TestGenerateTOC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		headings []headingInfo
		want     string
	}{
		{
			name:     "empty",
			headings: nil,
			want:     "",
		},
		{
			name: "flat",
			headings: []headingInfo{
				{Level: 2, ID: "a", Text: "A"},
				{Level: 2, ID: "b", Text: "B"},
			},
			want: `<div class="toc"><ul><li><a href="#a">A</a></li><li><a href="#b">B</a></li></ul></div>`,
		},
		{
			name: "nested and back out",
			headings: []headingInfo{
				{Level: 1, ID: "a", Text: "A"},
				{Level: 2, ID: "b", Text: "B"},
				{Level: 1, ID: "c", Text: "C"},
			},
			want: `<div class="toc"><ul><li><a href="#a">A</a><ul><li><a href="#b">B</a></li></ul></li><li><a href="#c">C</a></li></ul></div>`,
		},
		{
			name: "skipped level nests one step",
			headings: []headingInfo{
				{Level: 2, ID: "a", Text: "A"},
				{Level: 4, ID: "b", Text: "B"},
			},
			want: `<div class="toc"><ul><li><a href="#a">A</a><ul><li><a href="#b">B</a></li></ul></li></ul></div>`,
		},
		{
			name: "text is escaped",
			headings: []headingInfo{
				{Level: 1, ID: "x", Text: "a < b"},
			},
			want: `<div class="toc"><ul><li><a href="#x">a &lt; b</a></li></ul></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := generateTOC(tt.headings); got != tt.want {
				t.Errorf("generateTOC() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestExtractHeadings(t *testing.T) {
	t.Parallel()

	in := `<h1 id="intro">Intro <code>x</code></h1><p>t</p><h3 id="a-b">A &amp; B</h3><h2>no id</h2>`
	got := extractHeadings(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0] != (headingInfo{Level: 1, ID: "intro", Text: "Intro x"}) {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1] != (headingInfo{Level: 3, ID: "a-b", Text: "A & B"}) {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestExpandTOC(t *testing.T) {
	t.Parallel()

	t.Run("no marker", func(t *testing.T) {
		t.Parallel()
		in := `<h1 id="a">A</h1>`
		if got := expandTOC(in); got != in {
			t.Errorf("expandTOC() = %q, want unchanged", got)
		}
	})

	t.Run("marker without headings is removed", func(t *testing.T) {
		t.Parallel()
		if got := expandTOC("<p>[TOC]</p>\n<p>x</p>"); strings.Contains(got, "[TOC]") {
			t.Errorf("marker not removed: %q", got)
		}
	})

	t.Run("every marker expands", func(t *testing.T) {
		t.Parallel()
		got := expandTOC("<p>[TOC]</p><h2 id=\"a\">A</h2><p>[TOC]</p>")
		if n := strings.Count(got, `<div class="toc">`); n != 2 {
			t.Errorf("toc count = %d, want 2: %q", n, got)
		}
	})
}

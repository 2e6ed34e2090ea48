package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "shorter than max", input: "abc", max: 10, want: "abc"},
		{name: "exactly max", input: "abc", max: 3, want: "abc"},
		{name: "cut", input: "abcdef", max: 4, want: "abcd"},
		{name: "multibyte counted as characters", input: "héllo wörld", max: 7, want: "héllo w"},
		{name: "multibyte shorter in runes than bytes", input: "ééé", max: 3, want: "ééé"},
		{name: "zero disables", input: "abc", max: 0, want: "abc"},
		{name: "empty", input: "", max: 5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncate_DefaultLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("α", DefaultMaxChars+123)
	got := Truncate(long, DefaultMaxChars)
	if n := utf8.RuneCountInString(got); n != DefaultMaxChars {
		t.Errorf("rune count = %d, want %d", n, DefaultMaxChars)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated text is not valid UTF-8")
	}
}

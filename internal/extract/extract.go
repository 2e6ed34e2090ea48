// Package extract turns PDF bytes into plain text.
package extract

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrExtraction indicates the PDF could not be converted to text.
var ErrExtraction = errors.New("text extraction failed")

// DefaultMaxChars is the number of characters kept from a paper.
const DefaultMaxChars = 50000

// Extractor converts a PDF document to plain text.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// Truncate returns the first max characters of text. Characters are
// counted as runes so multi-byte text is never split mid-character.
// A max of zero or less disables truncation.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

// Package storage persists summary artifacts under string keys.
//
// Keys form a flat namespace with a "results/" prefix:
//
//	results/<request-id>.html
//	results/<request-id>.md
//	results/<request-id>.pdf
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates no artifact exists under the key.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey indicates a key that is empty or escapes the namespace.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Content types of the stored artifacts.
const (
	ContentTypeHTML     = "text/html"
	ContentTypeMarkdown = "text/markdown"
	ContentTypePDF      = "application/pdf"
)

const resultsPrefix = "results/"

// Store is a durable key/value store for artifacts.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// HTMLKey returns the key of the rendered page for a request.
func HTMLKey(requestID string) string { return resultsPrefix + requestID + ".html" }

// MarkdownKey returns the key of the Markdown summary for a request.
func MarkdownKey(requestID string) string { return resultsPrefix + requestID + ".md" }

// PDFKey returns the key of the exported PDF for a request.
func PDFKey(requestID string) string { return resultsPrefix + requestID + ".pdf" }

// ValidateKey rejects keys that are empty, absolute, contain backslashes,
// or contain "." or ".." segments.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.ContainsAny(key, "\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

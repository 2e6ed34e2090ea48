// Package arxiv resolves arXiv paper URLs and downloads their PDFs.
package arxiv

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sentinel errors for arXiv operations.
var (
	// ErrInvalidURL indicates the URL is not an arXiv abstract or PDF link.
	ErrInvalidURL = errors.New("invalid arXiv URL")

	// ErrFetch indicates the PDF download failed.
	ErrFetch = errors.New("failed to fetch paper")

	// ErrTooLarge indicates the PDF exceeds the configured size limit.
	ErrTooLarge = errors.New("paper exceeds maximum size")
)

const (
	absSegment = "/abs/"
	pdfSegment = "/pdf/"
	pdfExt     = ".pdf"
)

// PDFURL rewrites an abstract page URL to the PDF download URL:
// "/abs/" becomes "/pdf/" and ".pdf" is appended. URLs that already point
// at a PDF are returned with the extension ensured.
func PDFURL(raw string) (string, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return "", err
	}

	p := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.Contains(p, pdfSegment):
	case strings.Contains(p, absSegment):
		p = strings.Replace(p, absSegment, pdfSegment, 1)
	default:
		return "", fmt.Errorf("%w: %q has no /abs/ or /pdf/ segment", ErrInvalidURL, raw)
	}
	if !strings.HasSuffix(p, pdfExt) {
		p += pdfExt
	}

	u.Path = p
	u.RawPath = ""
	return u.String(), nil
}

// ExtractID returns the arXiv identifier without version suffix, for
// example "2301.07041" for "https://arxiv.org/abs/2301.07041v2".
// Returns "" when the URL has no identifier.
func ExtractID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	p := strings.TrimSuffix(u.Path, "/")
	idx := strings.Index(p, absSegment)
	seg := absSegment
	if idx < 0 {
		idx = strings.Index(p, pdfSegment)
		seg = pdfSegment
	}
	if idx < 0 {
		return ""
	}
	id := strings.TrimSuffix(p[idx+len(seg):], pdfExt)

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func parseHTTPURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q must use http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return u, nil
}

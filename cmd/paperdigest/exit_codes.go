package main

import (
	"errors"
	"os"

	"github.com/alnah/paperdigest/internal/arxiv"
	"github.com/alnah/paperdigest/internal/assets"
	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/extract"
	"github.com/alnah/paperdigest/internal/llm"
	"github.com/alnah/paperdigest/internal/pdf"
	"github.com/alnah/paperdigest/internal/processor"
	"github.com/alnah/paperdigest/internal/render"
	"github.com/alnah/paperdigest/internal/secrets"
	"github.com/alnah/paperdigest/internal/storage"
)

// Exit codes for the paperdigest CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Command completed
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or input
	ExitIO       = 3 // File, storage or secret access
	ExitUpstream = 4 // arXiv, extraction, model or browser failures
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Upstream services (exit 4)
	if errors.Is(err, arxiv.ErrFetch) ||
		errors.Is(err, arxiv.ErrTooLarge) ||
		errors.Is(err, extract.ErrExtraction) ||
		errors.Is(err, llm.ErrCompletion) ||
		errors.Is(err, llm.ErrNoChoices) ||
		errors.Is(err, dispatch.ErrDispatch) ||
		errors.Is(err, pdf.ErrBrowserConnect) ||
		errors.Is(err, pdf.ErrPageCreate) ||
		errors.Is(err, pdf.ErrPageLoad) ||
		errors.Is(err, pdf.ErrPDFGeneration) {
		return ExitUpstream
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, secrets.ErrSecretNotFound) ||
		errors.Is(err, llm.ErrAPIKey) ||
		errors.Is(err, assets.ErrRead) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, arxiv.ErrInvalidURL) ||
		errors.Is(err, processor.ErrInvalidJob) ||
		errors.Is(err, render.ErrMissingPlaceholder) ||
		errors.Is(err, pdf.ErrUnknownPaper) ||
		errors.Is(err, assets.ErrNotFound) ||
		errors.Is(err, assets.ErrInvalidName) ||
		errors.Is(err, assets.ErrInvalidDir) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}

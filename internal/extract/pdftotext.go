package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// DefaultCommand is the poppler text extractor.
const DefaultCommand = "pdftotext"

// Pdftotext extracts text with poppler's pdftotext, which reads its input
// from a file path.
type Pdftotext struct {
	runner  Runner
	command string
	logger  *slog.Logger
}

// NewPdftotext creates an extractor. A nil runner uses ExecRunner and an
// empty command uses DefaultCommand.
func NewPdftotext(runner Runner, command string, logger *slog.Logger) *Pdftotext {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if command == "" {
		command = DefaultCommand
	}
	return &Pdftotext{runner: runner, command: command, logger: logger}
}

// Extract writes pdf to a temp file and returns pdftotext's output with
// form-feed page breaks turned into blank lines.
func (p *Pdftotext) Extract(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrExtraction)
	}

	path, err := writeTempFile(pdf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("extract.cleanup.failed", "path", path, "error", err)
		}
	}()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.command, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("%w: %v: %s", ErrExtraction, err, msg)
		}
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n\n")
	pages := 1 + strings.Count(string(out), "\f")
	if strings.TrimSpace(text) == "" {
		p.logger.Warn("extract.empty_text", "pages", pages)
	}
	p.logger.Debug("extract.done", "pages", pages, "chars", len(text))
	return text, nil
}

func writeTempFile(data []byte) (string, error) {
	f, err := os.CreateTemp("", "paperdigest-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return path, nil
}

// Compile-time interface check.
var _ Extractor = (*Pdftotext)(nil)

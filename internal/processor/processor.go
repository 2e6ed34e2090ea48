// Package processor runs the summarization pipeline for one job: fetch the
// paper, extract its text, summarize it, render the summary and store the
// artifacts.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alnah/paperdigest/internal/arxiv"
	"github.com/alnah/paperdigest/internal/extract"
	"github.com/alnah/paperdigest/internal/llm"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/pdf"
	"github.com/alnah/paperdigest/internal/render"
	"github.com/alnah/paperdigest/internal/storage"
)

// Pipeline stages, used in error messages, logs and metric labels.
const (
	StageResolve   = "resolve"
	StageFetch     = "fetch"
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StageRender    = "render"
	StagePDF       = "pdf"
	StageStore     = "store"
)

// ErrMissingDependency indicates a required collaborator was not provided.
var ErrMissingDependency = errors.New("missing processor dependency")

// Fetcher downloads a paper PDF.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Renderer converts Markdown to an HTML fragment and provides its stylesheet.
type Renderer interface {
	Render(ctx context.Context, markdown string) (string, error)
	WriteCSS(w io.Writer) error
}

// PDFConverter prints a full HTML page to PDF.
type PDFConverter interface {
	ToPDF(ctx context.Context, htmlContent string, opts *pdf.Options) ([]byte, error)
}

// Compile-time interface implementation checks.
var (
	_ Fetcher           = (*arxiv.Fetcher)(nil)
	_ extract.Extractor = (*extract.Pdftotext)(nil)
	_ llm.Summarizer    = (*llm.OpenAI)(nil)
	_ Renderer          = (*render.Renderer)(nil)
	_ PDFConverter      = (*pdf.Chrome)(nil)
	_ storage.Store     = (*storage.FilesystemStore)(nil)
	_ storage.Store     = (*storage.SQLiteStore)(nil)
)

// Deps are the collaborators every processor needs.
type Deps struct {
	Fetcher    Fetcher
	Extractor  extract.Extractor
	Summarizer llm.Summarizer
	Renderer   Renderer
	Store      storage.Store

	Prompt   string // prompt template with llm.PromptPlaceholder
	Template string // page template with render.ContentPlaceholder
}

// Option configures a Processor.
type Option func(*Processor)

// WithPDF enables the PDF artifact.
func WithPDF(c PDFConverter) Option {
	return func(p *Processor) { p.pdf = c }
}

// WithMetrics records job and stage metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMaxChars sets how many characters of extracted text reach the prompt.
func WithMaxChars(n int) Option {
	return func(p *Processor) { p.maxChars = n }
}

// Processor orchestrates the pipeline. It holds no per-job state and is
// safe for concurrent use.
type Processor struct {
	deps     Deps
	css      string
	pdf      PDFConverter
	metrics  *metrics.Metrics
	log      *slog.Logger
	maxChars int
}

// New validates deps and renders the stylesheet once.
func New(deps Deps, opts ...Option) (*Processor, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", ErrMissingDependency)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor", ErrMissingDependency)
	case deps.Summarizer == nil:
		return nil, fmt.Errorf("%w: summarizer", ErrMissingDependency)
	case deps.Renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if !strings.Contains(deps.Template, render.ContentPlaceholder) {
		return nil, render.ErrMissingPlaceholder
	}

	p := &Processor{
		deps:     deps,
		log:      slog.Default(),
		maxChars: extract.DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(p)
	}

	if !strings.Contains(deps.Prompt, llm.PromptPlaceholder) {
		p.log.Warn("processor.prompt.no_placeholder", "placeholder", llm.PromptPlaceholder)
	}

	var css bytes.Buffer
	if err := deps.Renderer.WriteCSS(&css); err != nil {
		return nil, fmt.Errorf("building stylesheet: %w", err)
	}
	p.css = css.String()

	return p, nil
}

// Process runs every stage for job and stores the artifacts. The first
// failing stage aborts the job; artifacts already written are left in place.
// Failures are returned to the caller, which owns failure logging.
func (p *Processor) Process(ctx context.Context, job Job) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := job.Validate(); err != nil {
		return nil, err
	}

	log := p.log.With("request_id", job.RequestID, "arxiv_id", arxiv.ExtractID(job.ArxivURL))
	start := time.Now()
	log.Info("processor.start", "url", job.ArxivURL)
	defer func() {
		outcome := metrics.OutcomeFailed
		if err == nil {
			outcome = metrics.OutcomeSucceeded
			log.Info("processor.done", "duration", time.Since(start))
		}
		if p.metrics != nil {
			p.metrics.JobsTotal.WithLabelValues(outcome).Inc()
		}
	}()

	var pdfURL string
	if err := p.stage(ctx, log, StageResolve, func(context.Context) error {
		var err error
		pdfURL, err = arxiv.PDFURL(job.ArxivURL)
		return err
	}); err != nil {
		return nil, err
	}

	var doc []byte
	if err := p.stage(ctx, log, StageFetch, func(ctx context.Context) error {
		var err error
		doc, err = p.deps.Fetcher.Fetch(ctx, pdfURL)
		return err
	}); err != nil {
		return nil, err
	}

	var text string
	if err := p.stage(ctx, log, StageExtract, func(ctx context.Context) error {
		var err error
		text, err = p.deps.Extractor.Extract(ctx, doc)
		return err
	}); err != nil {
		return nil, err
	}
	text = extract.Truncate(text, p.maxChars)

	var summary string
	if err := p.stage(ctx, log, StageSummarize, func(ctx context.Context) error {
		var err error
		summary, err = p.deps.Summarizer.Summarize(ctx, llm.BuildPrompt(p.deps.Prompt, text))
		return err
	}); err != nil {
		return nil, err
	}
	markdown := withBackLink(summary, job.ArxivURL)
	if p.metrics != nil {
		p.metrics.SummaryChars.Observe(float64(utf8.RuneCountInString(summary)))
	}

	var page string
	if err := p.stage(ctx, log, StageRender, func(ctx context.Context) error {
		fragment, err := p.deps.Renderer.Render(ctx, markdown)
		if err != nil {
			return err
		}
		page, err = render.Page(p.deps.Template, fragment, p.css)
		return err
	}); err != nil {
		return nil, err
	}

	var pdfBytes []byte
	if p.pdf != nil {
		if err := p.stage(ctx, log, StagePDF, func(ctx context.Context) error {
			var err error
			pdfBytes, err = p.pdf.ToPDF(ctx, page, &pdf.Options{FooterText: "arXiv:" + arxiv.ExtractID(job.ArxivURL)})
			return err
		}); err != nil {
			return nil, err
		}
	}

	res = &Result{
		RequestID:   job.RequestID,
		Markdown:    markdown,
		HTMLKey:     storage.HTMLKey(job.RequestID),
		MarkdownKey: storage.MarkdownKey(job.RequestID),
	}
	if pdfBytes != nil {
		res.PDFKey = storage.PDFKey(job.RequestID)
	}

	if err := p.stage(ctx, log, StageStore, func(ctx context.Context) error {
		if err := p.deps.Store.Put(ctx, res.HTMLKey, []byte(page), storage.ContentTypeHTML); err != nil {
			return err
		}
		if err := p.deps.Store.Put(ctx, res.MarkdownKey, []byte(markdown), storage.ContentTypeMarkdown); err != nil {
			return err
		}
		if res.PDFKey != "" {
			return p.deps.Store.Put(ctx, res.PDFKey, pdfBytes, storage.ContentTypePDF)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return res, nil
}

// stage runs fn, records its duration and wraps its error with the stage name.
func (p *Processor) stage(ctx context.Context, log *slog.Logger, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if err != nil {
		log.Debug("processor.stage.failed", "stage", name, "duration", elapsed, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("processor.stage.done", "stage", name, "duration", elapsed)
	return nil
}

// withBackLink appends a Markdown link to the source paper.
func withBackLink(summary, arxivURL string) string {
	return summary + "\n\n[View original paper](" + arxivURL + ")"
}

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// DefaultStyle is the chroma style used for highlighted code.
const DefaultStyle = "github"

// crlfOrCR matches Windows and old Mac line endings.
var crlfOrCR = regexp.MustCompile(`\r\n?`)

// Renderer converts Markdown to an HTML fragment.
type Renderer struct {
	md        goldmark.Markdown
	hl        *highlighter
	styleName string
	logger    *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle selects the chroma style for highlighted code.
func WithStyle(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.styleName = name
		}
	}
}

// WithLogger sets the logger used for debug events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Renderer with GFM tables, heading anchors, footnotes and
// class-based highlighting for any fence the pre-pass does not handle.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		styleName: DefaultStyle,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.hl = newHighlighter(r.styleName, r.logger)
	r.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			newMathPassthrough(),
			highlighting.NewHighlighting(
				highlighting.WithStyle(r.styleName),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // anchors for [TOC]
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			renderer.WithNodeRenderers(util.Prioritized(mathRenderer{}, mathRendererPriority)),
		),
	)
	return r
}

// Render converts Markdown to an HTML fragment. Arbitrary input never
// fails; the only error is a canceled context.
func (r *Renderer) Render(ctx context.Context, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content := crlfOrCR.ReplaceAllString(markdown, "\n")
	content = stripPlaceholders(content)
	content, blocks := rewriteFences(content, r.hl)

	out, err := r.convert(ctx, content)
	if err != nil {
		return "", err
	}
	return restoreFences(out, blocks), nil
}

// convert is the standard Markdown conversion used after the fence
// pre-pass: Goldmark with math passthrough, then [TOC] expansion.
//
// Goldmark has no context support, so conversion runs in a goroutine and
// the caller returns early on cancellation.
func (r *Renderer) convert(ctx context.Context, content string) (string, error) {
	if content == "" {
		return "", nil
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: expandTOC(buf.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}

// WriteCSS writes the stylesheet for the highlighting classes.
func (r *Renderer) WriteCSS(w io.Writer) error {
	return r.hl.formatter.WriteCSS(w, r.hl.style)
}

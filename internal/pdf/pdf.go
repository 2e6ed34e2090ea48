// Package pdf prints rendered summary pages to PDF with headless Chrome.
//
// The browser is launched on the first export and shared afterwards. Rod
// downloads Chromium unless Config.BrowserBin or ROD_BROWSER_BIN names an
// installed browser.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrUnknownPaper   = errors.New("unknown paper size")
)

// DefaultTimeout bounds an export when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// Paper is a page size in inches.
type Paper struct {
	Width, Height float64
}

var (
	Letter = Paper{Width: 8.5, Height: 11}
	A4     = Paper{Width: 8.27, Height: 11.69}
)

// PaperByName maps "letter" and "a4", in any case, to a Paper.
func PaperByName(name string) (Paper, error) {
	switch strings.ToLower(name) {
	case "letter", "":
		return Letter, nil
	case "a4":
		return A4, nil
	}
	return Paper{}, fmt.Errorf("%w: %q", ErrUnknownPaper, name)
}

const (
	margin       = 0.5
	footerMargin = 0.75
)

// Options customizes one export.
type Options struct {
	// FooterText is printed left of the page counter. Empty disables the footer.
	FooterText string
}

// Converter turns a complete HTML page into PDF bytes.
type Converter interface {
	ToPDF(ctx context.Context, htmlContent string, opts *Options) ([]byte, error)
	Close() error
}

// Config configures Chrome.
type Config struct {
	// BrowserBin is the Chrome executable. Empty falls back to
	// ROD_BROWSER_BIN, then to a rod-managed download.
	BrowserBin string
	// NoSandbox disables the Chrome sandbox. It is forced on when a browser
	// binary is given or CI=true, as containers usually lack the privileges.
	NoSandbox bool
	Paper     Paper
	Timeout   time.Duration
}

// printer prints one HTML document.
type printer interface {
	Print(ctx context.Context, document string, params *proto.PagePrintToPDF) ([]byte, error)
	Close() error
}

var (
	_ Converter = (*Chrome)(nil)
	_ printer   = (*browserPrinter)(nil)
)

// Chrome exports pages through a lazily started headless browser.
type Chrome struct {
	printer printer
	paper   Paper
	timeout time.Duration
}

// NewChrome returns a Chrome converter. No browser starts until ToPDF.
func NewChrome(cfg Config) *Chrome {
	if cfg.BrowserBin == "" {
		cfg.BrowserBin = os.Getenv("ROD_BROWSER_BIN")
	}
	if cfg.BrowserBin != "" || os.Getenv("CI") == "true" {
		cfg.NoSandbox = true
	}
	if cfg.Paper == (Paper{}) {
		cfg.Paper = Letter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Chrome{
		printer: &browserPrinter{bin: cfg.BrowserBin, noSandbox: cfg.NoSandbox},
		paper:   cfg.Paper,
		timeout: cfg.Timeout,
	}
}

// ToPDF prints htmlContent with half-inch margins. The configured timeout
// applies only when ctx carries no deadline.
func (c *Chrome) ToPDF(ctx context.Context, htmlContent string, opts *Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.printer.Print(ctx, htmlContent, printParams(c.paper, opts))
}

// Close shuts the browser down if it was started.
func (c *Chrome) Close() error {
	return c.printer.Close()
}

// printParams builds the print request. A footer needs a taller bottom margin.
func printParams(paper Paper, opts *Options) *proto.PagePrintToPDF {
	bottom := margin
	footer := opts != nil && opts.FooterText != ""
	if footer {
		bottom = footerMargin
	}

	params := &proto.PagePrintToPDF{
		PaperWidth:      &paper.Width,
		PaperHeight:     &paper.Height,
		MarginTop:       inches(margin),
		MarginBottom:    inches(bottom),
		MarginLeft:      inches(margin),
		MarginRight:     inches(margin),
		PrintBackground: true,
	}
	if footer {
		params.DisplayHeaderFooter = true
		params.HeaderTemplate = "<span></span>"
		params.FooterTemplate = footerTemplate(opts.FooterText)
	}
	return params
}

const footerStyle = "font: 9px sans-serif; color: #888; width: 100%; padding: 0 0.5in; display: flex; justify-content: space-between;"

// footerTemplate lays out text and a page counter. Chrome fills the
// pageNumber and totalPages spans.
func footerTemplate(text string) string {
	return `<div style="` + footerStyle + `"><span>` + html.EscapeString(text) +
		`</span><span><span class="pageNumber"></span> / <span class="totalPages"></span></span></div>`
}

func inches(v float64) *float64 {
	return &v
}

// browserPrinter drives a shared rod browser.
type browserPrinter struct {
	bin       string
	noSandbox bool

	mu      sync.Mutex
	browser *rod.Browser
}

func (b *browserPrinter) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New()
	if b.bin != "" {
		l = l.Bin(b.bin)
	}
	if b.noSandbox {
		l = l.NoSandbox(true)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.browser = browser
	return browser, nil
}

// Print loads document into a blank tab and prints it. The tab is bound to
// ctx, so cancellation aborts loading and printing.
func (b *browserPrinter) Print(ctx context.Context, document string, params *proto.PagePrintToPDF) ([]byte, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx)
	if err := page.SetDocumentContent(document); err != nil {
		return nil, ctxOr(ctx, fmt.Errorf("%w: %v", ErrPageLoad, err))
	}
	if err := page.WaitLoad(); err != nil {
		return nil, ctxOr(ctx, fmt.Errorf("%w: %v", ErrPageLoad, err))
	}

	stream, err := page.PDF(params)
	if err != nil {
		return nil, ctxOr(ctx, fmt.Errorf("%w: %v", ErrPDFGeneration, err))
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

func (b *browserPrinter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

// ctxOr prefers the context error, which callers can match on.
func ctxOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/paperdigest/internal/config"
)

// ErrUsage indicates invalid command-line usage.
var ErrUsage = errors.New("usage error")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	logLevel  string
	logFormat string
	verbose   bool
}

// serviceFlags holds flags for the long-running commands.
type serviceFlags struct {
	addr       string
	workers    int
	jobTimeout time.Duration
	dispatch   string
	processor  string
}

// storageFlags selects the artifact store.
type storageFlags struct {
	backend string
	dir     string
	sqlite  string
}

// serveFlags holds all flags for serve, frontdoor and processor.
type serveFlags struct {
	common  commonFlags
	service serviceFlags
	storage storageFlags
	pdf     bool
	fs      *flag.FlagSet
}

// summarizeFlags holds flags for the one-shot summarize command.
type summarizeFlags struct {
	common   commonFlags
	storage  storageFlags
	pdf      bool
	markdown bool
	fs       *flag.FlagSet
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common    commonFlags
	output    string
	style     string
	template  string
	assetPath string
	fragment  bool
	fs        *flag.FlagSet
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "Config file name or path")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: text, json")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Shorthand for --log-level debug")
}

func addStorageFlags(fs *flag.FlagSet, f *storageFlags) {
	fs.StringVar(&f.backend, "storage", "", "Artifact store: filesystem, sqlite")
	fs.StringVar(&f.dir, "storage-dir", "", "Filesystem store directory")
	fs.StringVar(&f.sqlite, "sqlite-path", "", "SQLite database file")
}

func addServiceFlags(fs *flag.FlagSet, f *serviceFlags) {
	fs.StringVarP(&f.addr, "addr", "a", "", "Listen address")
	fs.IntVarP(&f.workers, "workers", "w", 0, "Queue workers")
	fs.DurationVar(&f.jobTimeout, "job-timeout", 0, "Per-job timeout")
	fs.StringVar(&f.dispatch, "dispatch", "", "Dispatch mode: queue, http")
	fs.StringVar(&f.processor, "processor-url", "", "Processor base URL for http dispatch")
}

func parseServeFlags(name string, args []string) (*serveFlags, error) {
	f := &serveFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	addCommonFlags(f.fs, &f.common)
	addServiceFlags(f.fs, &f.service)
	addStorageFlags(f.fs, &f.storage)
	f.fs.BoolVar(&f.pdf, "pdf", false, "Also export each summary as PDF")
	if err := parseArgs(f.fs, args); err != nil {
		return nil, err
	}
	if f.fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %s takes no arguments, got %q", ErrUsage, name, f.fs.Arg(0))
	}
	return f, nil
}

func parseSummarizeFlags(args []string) (*summarizeFlags, []string, error) {
	f := &summarizeFlags{fs: flag.NewFlagSet("summarize", flag.ContinueOnError)}
	addCommonFlags(f.fs, &f.common)
	addStorageFlags(f.fs, &f.storage)
	f.fs.BoolVar(&f.pdf, "pdf", false, "Also export the summary as PDF")
	f.fs.BoolVar(&f.markdown, "markdown", false, "Print the Markdown summary to stdout")
	if err := parseArgs(f.fs, args); err != nil {
		return nil, nil, err
	}
	return f, f.fs.Args(), nil
}

func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	f := &renderFlags{fs: flag.NewFlagSet("render", flag.ContinueOnError)}
	addCommonFlags(f.fs, &f.common)
	f.fs.StringVarP(&f.output, "output", "o", "", "Output file (default stdout)")
	f.fs.StringVar(&f.style, "style", "", "Chroma highlighting style")
	f.fs.StringVar(&f.template, "template", "", "Page template name")
	f.fs.StringVar(&f.assetPath, "asset-path", "", "Directory with prompts/ and templates/ overrides")
	f.fs.BoolVar(&f.fragment, "fragment", false, "Print the HTML fragment without the page template")
	if err := parseArgs(f.fs, args); err != nil {
		return nil, nil, err
	}
	return f, f.fs.Args(), nil
}

func parseArgs(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// applyCommonFlags overrides the log section.
func applyCommonFlags(f *commonFlags, cfg *config.Config) {
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
}

func applyStorageFlags(f *storageFlags, cfg *config.Config) {
	if f.backend != "" {
		cfg.Storage.Backend = f.backend
	}
	if f.dir != "" {
		cfg.Storage.Dir = f.dir
	}
	if f.sqlite != "" {
		cfg.Storage.SQLitePath = f.sqlite
	}
}

// applyServeFlags overrides cfg with every flag set on the command line.
func applyServeFlags(f *serveFlags, cfg *config.Config) {
	applyCommonFlags(&f.common, cfg)
	applyStorageFlags(&f.storage, cfg)
	if f.service.addr != "" {
		cfg.Server.Addr = f.service.addr
	}
	if f.fs.Changed("workers") {
		cfg.Dispatch.Workers = f.service.workers
	}
	if f.fs.Changed("job-timeout") {
		cfg.Dispatch.JobTimeout = f.service.jobTimeout
	}
	if f.service.dispatch != "" {
		cfg.Dispatch.Mode = f.service.dispatch
	}
	if f.service.processor != "" {
		cfg.Dispatch.ProcessorURL = f.service.processor
	}
	if f.fs.Changed("pdf") {
		cfg.Artifacts.PDF = f.pdf
	}
}

func applySummarizeFlags(f *summarizeFlags, cfg *config.Config) {
	applyCommonFlags(&f.common, cfg)
	applyStorageFlags(&f.storage, cfg)
	if f.fs.Changed("pdf") {
		cfg.Artifacts.PDF = f.pdf
	}
}

func applyRenderFlags(f *renderFlags, cfg *config.Config) {
	applyCommonFlags(&f.common, cfg)
	if f.style != "" {
		cfg.Render.Style = f.style
	}
	if f.template != "" {
		cfg.Assets.Template = f.template
	}
	if f.assetPath != "" {
		cfg.Assets.BasePath = f.assetPath
	}
}

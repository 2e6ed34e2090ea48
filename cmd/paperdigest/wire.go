package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alnah/paperdigest/internal/arxiv"
	"github.com/alnah/paperdigest/internal/assets"
	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/extract"
	"github.com/alnah/paperdigest/internal/llm"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/pdf"
	"github.com/alnah/paperdigest/internal/processor"
	"github.com/alnah/paperdigest/internal/render"
	"github.com/alnah/paperdigest/internal/secrets"
	"github.com/alnah/paperdigest/internal/storage"
)

// openAIKeyEnv is the conventional variable for the OpenAI key.
const openAIKeyEnv = "OPENAI_API_KEY"

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStore opens the configured artifact store.
func openStore(ctx context.Context, cfg *config.Config, c *closers) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := storage.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.add(s.Close)
		return s, nil
	default:
		return storage.NewFilesystemStore(cfg.Storage.Dir)
	}
}

// newKeySource reads secrets from the secrets directory first, then from
// the environment.
func newKeySource(cfg *config.Config) secrets.Provider {
	var chain secrets.Chain
	if cfg.Secrets.Dir != "" {
		chain = append(chain, secrets.DirProvider{Dir: cfg.Secrets.Dir})
	}
	return append(chain, secrets.EnvProvider{
		Vars: map[string]string{llm.DefaultAPIKeySecret: openAIKeyEnv},
	})
}

// loadAssets reads the configured prompt and page template, override
// directory first.
func loadAssets(cfg *config.Config) (assets.Bundle, error) {
	lib, err := assets.Open(cfg.Assets.BasePath)
	if err != nil {
		return assets.Bundle{}, err
	}
	defer func() { _ = lib.Close() }()
	return lib.Bundle(cfg.Assets.Prompt, cfg.Assets.Template)
}

// loadTemplate reads only the page template.
func loadTemplate(cfg *config.Config) (string, error) {
	lib, err := assets.Open(cfg.Assets.BasePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = lib.Close() }()
	return lib.Read(assets.Template, cfg.Assets.Template)
}

func newRenderer(cfg *config.Config, log *slog.Logger) *render.Renderer {
	return render.New(render.WithStyle(cfg.Render.Style), render.WithLogger(log))
}

// newProcessor builds the pipeline from cfg.
func newProcessor(cfg *config.Config, store storage.Store, m *metrics.Metrics, log *slog.Logger, c *closers) (*processor.Processor, error) {
	bundle, err := loadAssets(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}

	fetcher := arxiv.NewFetcher(
		arxiv.WithHTTPClient(&http.Client{Timeout: cfg.Arxiv.Timeout}),
		arxiv.WithUserAgent(cfg.Arxiv.UserAgent),
		arxiv.WithMaxBytes(cfg.Arxiv.MaxBytes),
	)
	extractor := extract.NewPdftotext(&extract.ExecRunner{Logger: log}, cfg.Extract.Command, log)
	summarizer := llm.NewOpenAI(newKeySource(cfg), llm.OpenAIConfig{
		Model:               cfg.LLM.Model,
		BaseURL:             cfg.LLM.BaseURL,
		APIKeySecret:        cfg.LLM.APIKeySecret,
		Temperature:         cfg.LLM.Temperature,
		TopP:                cfg.LLM.TopP,
		FrequencyPenalty:    cfg.LLM.FrequencyPenalty,
		PresencePenalty:     cfg.LLM.PresencePenalty,
		MaxCompletionTokens: cfg.LLM.MaxCompletionTokens,
		Timeout:             cfg.LLM.Timeout,
	}, log)

	opts := []processor.Option{
		processor.WithLogger(log),
		processor.WithMaxChars(cfg.Extract.MaxChars),
	}
	if m != nil {
		opts = append(opts, processor.WithMetrics(m))
	}
	if cfg.Artifacts.PDF {
		paper, err := pdf.PaperByName(cfg.PDF.Paper)
		if err != nil {
			return nil, err
		}
		conv := pdf.NewChrome(pdf.Config{
			BrowserBin: cfg.PDF.BrowserBin,
			Paper:      paper,
			Timeout:    cfg.PDF.Timeout,
		})
		c.add(conv.Close)
		opts = append(opts, processor.WithPDF(conv))
	}

	return processor.New(processor.Deps{
		Fetcher:    fetcher,
		Extractor:  extractor,
		Summarizer: summarizer,
		Renderer:   newRenderer(cfg, log),
		Store:      store,
		Prompt:     bundle.Prompt,
		Template:   bundle.Template,
	}, opts...)
}

// newQueue starts the in-process worker queue.
func newQueue(cfg *config.Config, proc dispatch.Processor, m *metrics.Metrics, log *slog.Logger) *dispatch.Queue {
	return dispatch.NewQueue(proc,
		dispatch.WithWorkers(cfg.Dispatch.Workers),
		dispatch.WithQueueSize(cfg.Dispatch.QueueSize),
		dispatch.WithJobTimeout(cfg.Dispatch.JobTimeout),
		dispatch.WithQueueLogger(log),
		dispatch.WithQueueMetrics(m),
	)
}

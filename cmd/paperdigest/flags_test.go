package main

import (
	"errors"
	"testing"
	"time"

	"github.com/alnah/paperdigest/internal/config"
)

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdFrontDoor, []string{
		"-a", ":9999", "-w", "0", "--job-timeout", "1m",
		"--dispatch", "http", "--processor-url", "http://proc:8081",
		"--storage", "sqlite", "--sqlite-path", "/tmp/x.db", "--pdf", "-v",
	})
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}

	cfg := config.DefaultConfig()
	applyServeFlags(f, cfg)

	if cfg.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Dispatch.Workers != 0 {
		t.Errorf("Dispatch.Workers = %d, want explicit 0 applied", cfg.Dispatch.Workers)
	}
	if cfg.Dispatch.JobTimeout != time.Minute {
		t.Errorf("Dispatch.JobTimeout = %v", cfg.Dispatch.JobTimeout)
	}
	if cfg.Dispatch.Mode != config.DispatchHTTP || cfg.Dispatch.ProcessorURL != "http://proc:8081" {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Storage.Backend != config.BackendSQLite || cfg.Storage.SQLitePath != "/tmp/x.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !cfg.Artifacts.PDF || cfg.Log.Level != "debug" {
		t.Errorf("PDF = %v, Log.Level = %q", cfg.Artifacts.PDF, cfg.Log.Level)
	}
	if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("Validate() error = %v, want zero workers rejected", err)
	}
}

func TestParseServeFlags_UnsetFlagsKeepConfig(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdServe, nil)
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Artifacts.PDF = true
	cfg.Dispatch.Workers = 3
	applyServeFlags(f, cfg)

	if !cfg.Artifacts.PDF || cfg.Dispatch.Workers != 3 {
		t.Errorf("unset flags overrode config: %+v %+v", cfg.Artifacts, cfg.Dispatch)
	}
}

func TestParseSummarizeFlags(t *testing.T) {
	t.Parallel()

	f, pos, err := parseSummarizeFlags([]string{"https://arxiv.org/abs/1", "--markdown", "--pdf=false"})
	if err != nil {
		t.Fatalf("parseSummarizeFlags() error = %v", err)
	}
	if len(pos) != 1 || pos[0] != "https://arxiv.org/abs/1" {
		t.Errorf("positional = %q", pos)
	}
	if !f.markdown {
		t.Error("markdown = false")
	}

	cfg := config.DefaultConfig()
	cfg.Artifacts.PDF = true
	applySummarizeFlags(f, cfg)
	if cfg.Artifacts.PDF {
		t.Error("--pdf=false did not disable PDF export")
	}
}

func TestParseRenderFlags(t *testing.T) {
	t.Parallel()

	f, pos, err := parseRenderFlags([]string{"in.md", "--style", "monokai", "--template", "plain", "--asset-path", "/assets"})
	if err != nil {
		t.Fatalf("parseRenderFlags() error = %v", err)
	}
	if len(pos) != 1 || pos[0] != "in.md" {
		t.Errorf("positional = %q", pos)
	}

	cfg := config.DefaultConfig()
	applyRenderFlags(f, cfg)
	if cfg.Render.Style != "monokai" || cfg.Assets.Template != "plain" || cfg.Assets.BasePath != "/assets" {
		t.Errorf("cfg = %+v %+v", cfg.Render, cfg.Assets)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := parseServeFlags(cmdServe, []string{"--bogus"}); !errors.Is(err, ErrUsage) {
		t.Errorf("parseServeFlags() error = %v, want ErrUsage", err)
	}
	if _, _, err := parseRenderFlags([]string{"--bogus"}); !errors.Is(err, ErrUsage) {
		t.Errorf("parseRenderFlags() error = %v, want ErrUsage", err)
	}
}

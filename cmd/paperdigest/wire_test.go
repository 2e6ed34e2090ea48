package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/secrets"
	"github.com/alnah/paperdigest/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend string
	}{
		{"filesystem", config.BackendFilesystem},
		{"sqlite", config.BackendSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			cfg := config.DefaultConfig()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Dir = filepath.Join(dir, "artifacts")
			cfg.Storage.SQLitePath = filepath.Join(dir, "pd.db")

			var res closers
			defer res.Close()

			ctx := context.Background()
			store, err := openStore(ctx, cfg, &res)
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			key := storage.HTMLKey("3f2b8c1e-7d4a-4e55-9a1b-2c6d8e0f4a71")
			if err := store.Put(ctx, key, []byte("<p>x</p>"), storage.ContentTypeHTML); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, err := store.Get(ctx, key)
			if err != nil || string(got) != "<p>x</p>" {
				t.Errorf("Get() = %q, %v", got, err)
			}
		})
	}
}

func TestNewKeySource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "openai"), []byte(`{"private_key":"from-dir"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg := config.DefaultConfig()
	ctx := context.Background()

	got, err := newKeySource(cfg).Get(ctx, "openai")
	if err != nil || got != "from-env" {
		t.Errorf("env only: Get() = %q, %v", got, err)
	}

	cfg.Secrets.Dir = dir
	got, err = newKeySource(cfg).Get(ctx, "openai")
	if err != nil || got != "from-dir" {
		t.Errorf("dir first: Get() = %q, %v", got, err)
	}

	if _, err := newKeySource(cfg).Get(ctx, "missing"); !errors.Is(err, secrets.ErrSecretNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSecretNotFound", err)
	}
}

func TestLoadAssets(t *testing.T) {
	t.Parallel()

	t.Run("embedded", func(t *testing.T) {
		t.Parallel()

		b, err := loadAssets(config.DefaultConfig())
		if err != nil {
			t.Fatalf("loadAssets() error = %v", err)
		}
		if !strings.Contains(b.Prompt, "{$file_content}") {
			t.Error("embedded prompt missing placeholder")
		}
		if !strings.Contains(b.Template, "{{CONTENT}}") {
			t.Error("embedded template missing placeholder")
		}
	})

	t.Run("custom template with embedded prompt", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		if err := os.MkdirAll(filepath.Join(base, "templates"), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(base, "templates", "page.html"), []byte("<main>{{CONTENT}}</main>"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg := config.DefaultConfig()
		cfg.Assets.BasePath = base
		b, err := loadAssets(cfg)
		if err != nil {
			t.Fatalf("loadAssets() error = %v", err)
		}
		if b.Template != "<main>{{CONTENT}}</main>" {
			t.Errorf("template = %q, want the custom one", b.Template)
		}
		if b.Prompt == "" {
			t.Error("prompt should fall back to the embedded asset")
		}
	})
}

func TestNewProcessor(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Storage.Dir = t.TempDir()

	var res closers
	defer res.Close()

	store, err := openStore(context.Background(), cfg, &res)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	if _, err := newProcessor(cfg, store, metrics.New(), quietLogger(), &res); err != nil {
		t.Errorf("newProcessor() error = %v", err)
	}

	// PDF export registers the browser closer without launching Chrome.
	cfg.Artifacts.PDF = true
	cfg.PDF.Paper = "a4"
	if _, err := newProcessor(cfg, store, nil, quietLogger(), &res); err != nil {
		t.Errorf("newProcessor() with PDF error = %v", err)
	}

	cfg.Artifacts.PDF = false
	cfg.Assets.Template = "missing"
	if _, err := newProcessor(cfg, store, nil, quietLogger(), &res); exitCodeFor(err) != ExitUsage {
		t.Errorf("newProcessor() with missing template error = %v, want a usage error", err)
	}
}

func TestClosers_ReverseOrder(t *testing.T) {
	t.Parallel()

	var order []int
	var c closers
	c.add(func() error { order = append(order, 1); return nil })
	c.add(func() error { order = append(order, 2); return errors.New("second") })

	if err := c.Close(); err == nil || !strings.Contains(err.Error(), "second") {
		t.Errorf("Close() error = %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}

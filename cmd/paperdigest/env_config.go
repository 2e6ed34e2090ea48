package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/paperdigest/internal/config"
)

const envPrefix = "PAPERDIGEST_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without editing YAML files.
type envConfig struct {
	ConfigPath string // PAPERDIGEST_CONFIG: config file path or name

	// Service
	Addr         string        // PAPERDIGEST_ADDR: listen address
	APIKey       string        // PAPERDIGEST_API_KEY: X-Api-Key value
	DispatchMode string        // PAPERDIGEST_DISPATCH_MODE: queue, http
	ProcessorURL string        // PAPERDIGEST_PROCESSOR_URL: processor base URL
	Workers      int           // PAPERDIGEST_WORKERS: queue workers
	JobTimeout   time.Duration // PAPERDIGEST_JOB_TIMEOUT: per-job timeout

	// Pipeline
	LLMModel   string // PAPERDIGEST_LLM_MODEL: chat model
	LLMBaseURL string // PAPERDIGEST_LLM_BASE_URL: OpenAI-compatible endpoint
	SecretsDir string // PAPERDIGEST_SECRETS_DIR: one file per secret
	PDF        string // PAPERDIGEST_PDF: "true" or "false"
	PDFPaper   string // PAPERDIGEST_PDF_PAPER: letter, a4

	// Storage
	StorageBackend string // PAPERDIGEST_STORAGE_BACKEND: filesystem, sqlite
	StorageDir     string // PAPERDIGEST_STORAGE_DIR: filesystem root
	SQLitePath     string // PAPERDIGEST_SQLITE_PATH: database file

	// Logging
	LogLevel  string // PAPERDIGEST_LOG_LEVEL
	LogFormat string // PAPERDIGEST_LOG_FORMAT
}

// knownEnvVars lists valid PAPERDIGEST_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"PAPERDIGEST_CONFIG":          true,
	"PAPERDIGEST_ADDR":            true,
	"PAPERDIGEST_API_KEY":         true,
	"PAPERDIGEST_DISPATCH_MODE":   true,
	"PAPERDIGEST_PROCESSOR_URL":   true,
	"PAPERDIGEST_WORKERS":         true,
	"PAPERDIGEST_JOB_TIMEOUT":     true,
	"PAPERDIGEST_LLM_MODEL":       true,
	"PAPERDIGEST_LLM_BASE_URL":    true,
	"PAPERDIGEST_SECRETS_DIR":     true,
	"PAPERDIGEST_PDF":             true,
	"PAPERDIGEST_PDF_PAPER":       true,
	"PAPERDIGEST_STORAGE_BACKEND": true,
	"PAPERDIGEST_STORAGE_DIR":     true,
	"PAPERDIGEST_SQLITE_PATH":     true,
	"PAPERDIGEST_LOG_LEVEL":       true,
	"PAPERDIGEST_LOG_FORMAT":      true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:     os.Getenv("PAPERDIGEST_CONFIG"),
		Addr:           os.Getenv("PAPERDIGEST_ADDR"),
		APIKey:         os.Getenv("PAPERDIGEST_API_KEY"),
		DispatchMode:   os.Getenv("PAPERDIGEST_DISPATCH_MODE"),
		ProcessorURL:   os.Getenv("PAPERDIGEST_PROCESSOR_URL"),
		LLMModel:       os.Getenv("PAPERDIGEST_LLM_MODEL"),
		LLMBaseURL:     os.Getenv("PAPERDIGEST_LLM_BASE_URL"),
		SecretsDir:     os.Getenv("PAPERDIGEST_SECRETS_DIR"),
		PDF:            os.Getenv("PAPERDIGEST_PDF"),
		PDFPaper:       os.Getenv("PAPERDIGEST_PDF_PAPER"),
		StorageBackend: os.Getenv("PAPERDIGEST_STORAGE_BACKEND"),
		StorageDir:     os.Getenv("PAPERDIGEST_STORAGE_DIR"),
		SQLitePath:     os.Getenv("PAPERDIGEST_SQLITE_PATH"),
		LogLevel:       os.Getenv("PAPERDIGEST_LOG_LEVEL"),
		LogFormat:      os.Getenv("PAPERDIGEST_LOG_FORMAT"),
	}

	if workers := os.Getenv("PAPERDIGEST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	if timeout := os.Getenv("PAPERDIGEST_JOB_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.JobTimeout = d
		}
	}

	return cfg
}

// warnUnknownEnvVars prints warnings for unrecognized PAPERDIGEST_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides file values with every variable that is set.
// Flags are applied afterwards: flags > env > file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString(&cfg.Server.Addr, env.Addr)
	setString(&cfg.Server.APIKey, env.APIKey)
	setString(&cfg.Dispatch.Mode, env.DispatchMode)
	setString(&cfg.Dispatch.ProcessorURL, env.ProcessorURL)
	if env.Workers > 0 {
		cfg.Dispatch.Workers = env.Workers
	}
	if env.JobTimeout > 0 {
		cfg.Dispatch.JobTimeout = env.JobTimeout
	}

	setString(&cfg.LLM.Model, env.LLMModel)
	setString(&cfg.LLM.BaseURL, env.LLMBaseURL)
	setString(&cfg.Secrets.Dir, env.SecretsDir)
	if b, err := strconv.ParseBool(env.PDF); err == nil {
		cfg.Artifacts.PDF = b
	}
	setString(&cfg.PDF.Paper, env.PDFPaper)

	setString(&cfg.Storage.Backend, env.StorageBackend)
	setString(&cfg.Storage.Dir, env.StorageDir)
	setString(&cfg.Storage.SQLitePath, env.SQLitePath)

	setString(&cfg.Log.Level, env.LogLevel)
	setString(&cfg.Log.Format, env.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// loadSettings resolves the config file, applies env overrides and lets
// the caller apply flags before validation.
func loadSettings(configFlag string, stderr io.Writer, applyFlags func(*config.Config)) (*config.Config, error) {
	warnUnknownEnvVars(stderr)
	env := loadEnvConfig()

	cfg := config.DefaultConfig()
	name := configFlag
	if name == "" {
		name = env.ConfigPath
	}
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	if applyFlags != nil {
		applyFlags(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

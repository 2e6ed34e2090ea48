package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxAddrLength      = 255  // host:port
	MaxURLLength       = 2048 // Browser limit
	MaxPathLength      = 4096 // PATH_MAX on Linux
	MaxNameLength      = 100  // asset, style, secret and model names
	MaxUserAgentLength = 256
	MaxAPIKeyLength    = 512
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
)

// Dispatch modes.
const (
	DispatchQueue = "queue" // in-process worker queue
	DispatchHTTP  = "http"  // POST to a remote processor
)

// Config holds all configuration for the front door and the processor.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Arxiv     ArxivConfig     `yaml:"arxiv"`
	Extract   ExtractConfig   `yaml:"extract"`
	LLM       LLMConfig       `yaml:"llm"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Storage   StorageConfig   `yaml:"storage"`
	Assets    AssetsConfig    `yaml:"assets"`
	Render    RenderConfig    `yaml:"render"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	PDF       PDFConfig       `yaml:"pdf"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`            // default ":8080"
	APIKey          string        `yaml:"apiKey"`          // empty = no X-Api-Key check
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"` // default 30s
}

// DispatchConfig defines how the front door hands jobs to the processor.
type DispatchConfig struct {
	Mode         string        `yaml:"mode"`         // "queue" or "http"
	ProcessorURL string        `yaml:"processorUrl"` // required for "http"
	Workers      int           `yaml:"workers"`      // queue workers, default 1
	QueueSize    int           `yaml:"queueSize"`    // pending jobs, default 64
	JobTimeout   time.Duration `yaml:"jobTimeout"`   // per job, default 5m
}

// ArxivConfig defines the paper download.
type ArxivConfig struct {
	UserAgent string        `yaml:"userAgent"`
	MaxBytes  int64         `yaml:"maxBytes"` // default 100 MiB
	Timeout   time.Duration `yaml:"timeout"`  // default 2m
}

// ExtractConfig defines PDF text extraction.
type ExtractConfig struct {
	Command  string `yaml:"command"`  // default "pdftotext"
	MaxChars int    `yaml:"maxChars"` // truncation limit, default 50000
}

// LLMConfig defines the chat-completion request.
type LLMConfig struct {
	Model               string        `yaml:"model"`
	BaseURL             string        `yaml:"baseUrl"` // empty = OpenAI
	APIKeySecret        string        `yaml:"apiKeySecret"`
	Temperature         float64       `yaml:"temperature"`
	TopP                float64       `yaml:"topP"`
	FrequencyPenalty    float64       `yaml:"frequencyPenalty"`
	PresencePenalty     float64       `yaml:"presencePenalty"`
	MaxCompletionTokens int64         `yaml:"maxCompletionTokens"`
	Timeout             time.Duration `yaml:"timeout"`
}

// SecretsConfig defines where secrets are read from.
type SecretsConfig struct {
	Dir string `yaml:"dir"` // one file per secret; empty = environment only
}

// StorageConfig defines the artifact store.
type StorageConfig struct {
	Backend    string `yaml:"backend"`    // "filesystem" or "sqlite"
	Dir        string `yaml:"dir"`        // filesystem root
	SQLitePath string `yaml:"sqlitePath"` // sqlite database file
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
	Prompt   string `yaml:"prompt"`   // prompt name, default "summary"
	Template string `yaml:"template"` // page template name, default "page"
}

// RenderConfig defines HTML rendering options.
type RenderConfig struct {
	Style string `yaml:"style"` // chroma style, default "github"
}

// ArtifactsConfig selects optional artifacts.
type ArtifactsConfig struct {
	PDF bool `yaml:"pdf"`
}

// PDFConfig defines headless Chrome PDF export.
type PDFConfig struct {
	Timeout    time.Duration `yaml:"timeout"`    // default 30s
	Paper      string        `yaml:"paper"`      // letter or a4
	BrowserBin string        `yaml:"browserBin"` // empty = rod-managed Chromium
}

// LogConfig defines structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Validate checks enumerations, ranges and field lengths. Called
// automatically by LoadConfig, but available for callers that build a
// Config by hand or after applying overrides.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.apiKey", c.Server.APIKey, MaxAPIKeyLength},
		{"dispatch.processorUrl", c.Dispatch.ProcessorURL, MaxURLLength},
		{"arxiv.userAgent", c.Arxiv.UserAgent, MaxUserAgentLength},
		{"extract.command", c.Extract.Command, MaxPathLength},
		{"llm.model", c.LLM.Model, MaxNameLength},
		{"llm.baseUrl", c.LLM.BaseURL, MaxURLLength},
		{"llm.apiKeySecret", c.LLM.APIKeySecret, MaxNameLength},
		{"secrets.dir", c.Secrets.Dir, MaxPathLength},
		{"storage.dir", c.Storage.Dir, MaxPathLength},
		{"storage.sqlitePath", c.Storage.SQLitePath, MaxPathLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
		{"assets.prompt", c.Assets.Prompt, MaxNameLength},
		{"assets.template", c.Assets.Template, MaxNameLength},
		{"render.style", c.Render.Style, MaxNameLength},
		{"pdf.browserBin", c.PDF.BrowserBin, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	switch c.Dispatch.Mode {
	case DispatchQueue:
	case DispatchHTTP:
		if c.Dispatch.ProcessorURL == "" {
			return fmt.Errorf("%w: dispatch.processorUrl: required when dispatch.mode is %q", ErrInvalidValue, DispatchHTTP)
		}
		if err := validateHTTPURL("dispatch.processorUrl", c.Dispatch.ProcessorURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: dispatch.mode %q (must be queue or http)", ErrInvalidValue, c.Dispatch.Mode)
	}
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("%w: dispatch.workers must be at least 1, got %d", ErrInvalidValue, c.Dispatch.Workers)
	}
	if c.Dispatch.QueueSize < 0 {
		return fmt.Errorf("%w: dispatch.queueSize cannot be negative", ErrInvalidValue)
	}
	if c.Dispatch.JobTimeout <= 0 {
		return fmt.Errorf("%w: dispatch.jobTimeout must be positive", ErrInvalidValue)
	}

	if c.Arxiv.MaxBytes <= 0 {
		return fmt.Errorf("%w: arxiv.maxBytes must be positive", ErrInvalidValue)
	}
	if c.Extract.MaxChars <= 0 {
		return fmt.Errorf("%w: extract.maxChars must be positive", ErrInvalidValue)
	}
	if c.Extract.Command == "" {
		return fmt.Errorf("%w: extract.command: required", ErrInvalidValue)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model: required", ErrInvalidValue)
	}
	if c.LLM.APIKeySecret == "" {
		return fmt.Errorf("%w: llm.apiKeySecret: required", ErrInvalidValue)
	}
	if c.LLM.BaseURL != "" {
		if err := validateHTTPURL("llm.baseUrl", c.LLM.BaseURL); err != nil {
			return err
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", ErrInvalidValue)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("%w: llm.topP must be between 0 and 1", ErrInvalidValue)
	}
	if c.LLM.FrequencyPenalty < -2 || c.LLM.FrequencyPenalty > 2 {
		return fmt.Errorf("%w: llm.frequencyPenalty must be between -2 and 2", ErrInvalidValue)
	}
	if c.LLM.PresencePenalty < -2 || c.LLM.PresencePenalty > 2 {
		return fmt.Errorf("%w: llm.presencePenalty must be between -2 and 2", ErrInvalidValue)
	}
	if c.LLM.MaxCompletionTokens <= 0 {
		return fmt.Errorf("%w: llm.maxCompletionTokens must be positive", ErrInvalidValue)
	}

	switch c.Storage.Backend {
	case BackendFilesystem:
		if c.Storage.Dir == "" {
			return fmt.Errorf("%w: storage.dir: required for the filesystem backend", ErrInvalidValue)
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlitePath: required for the sqlite backend", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: storage.backend %q (must be filesystem or sqlite)", ErrInvalidValue, c.Storage.Backend)
	}

	switch strings.ToLower(c.PDF.Paper) {
	case "letter", "a4":
	default:
		return fmt.Errorf("%w: pdf.paper %q (must be letter or a4)", ErrInvalidValue, c.PDF.Paper)
	}
	if c.PDF.Timeout <= 0 {
		return fmt.Errorf("%w: pdf.timeout must be positive", ErrInvalidValue)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateHTTPURL(fieldName, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s %q (must be an http or https URL)", ErrInvalidValue, fieldName, raw)
	}
	return nil
}

// DefaultConfig returns a configuration that runs the front door and an
// in-process processor against a local filesystem store.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Dispatch: DispatchConfig{
			Mode:       DispatchQueue,
			Workers:    1,
			QueueSize:  64,
			JobTimeout: 5 * time.Minute,
		},
		Arxiv: ArxivConfig{
			UserAgent: "paperdigest/1.0 (+https://github.com/alnah/paperdigest)",
			MaxBytes:  100 << 20,
			Timeout:   2 * time.Minute,
		},
		Extract: ExtractConfig{
			Command:  "pdftotext",
			MaxChars: 50000,
		},
		LLM: LLMConfig{
			Model:               "gpt-4o",
			APIKeySecret:        "openai",
			Temperature:         1,
			TopP:                1,
			MaxCompletionTokens: 5000,
			Timeout:             3 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:    BackendFilesystem,
			Dir:        "data",
			SQLitePath: "paperdigest.db",
		},
		Assets: AssetsConfig{
			Prompt:   "summary",
			Template: "page",
		},
		Render: RenderConfig{Style: "github"},
		PDF:    PDFConfig{Timeout: 30 * time.Second, Paper: "letter"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their defaults.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/paperdigest/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "paperdigest", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Package secrets resolves credentials by name from a directory of files or
// from environment variables.
//
// A secret file holds either the plain value or a JSON object with a
// "private_key" field, the shape used by managed secret stores.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for secret lookups.
var (
	ErrSecretNotFound    = errors.New("secret not found")
	ErrInvalidSecretName = errors.New("invalid secret name")
)

// Provider returns the value of a named secret.
type Provider interface {
	Get(ctx context.Context, name string) (string, error)
}

// DirProvider reads one file per secret from Dir. Files are read on every
// call.
type DirProvider struct {
	Dir string
}

// Get returns the trimmed content of Dir/name, unwrapping {"private_key": ...}.
func (p DirProvider) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(p.Dir, name)) // #nosec G304 -- name validated above
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}

	value := unwrap(strings.TrimSpace(string(data)))
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrSecretNotFound, name)
	}
	return value, nil
}

// unwrap extracts private_key from a JSON secret; anything else is
// returned unchanged.
func unwrap(raw string) string {
	if !strings.HasPrefix(raw, "{") {
		return raw
	}
	var doc struct {
		PrivateKey *string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc.PrivateKey == nil {
		return raw
	}
	return strings.TrimSpace(*doc.PrivateKey)
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSecretName, name)
	}
	return nil
}

// EnvProvider reads secrets from environment variables. Vars maps a secret
// name to its variable; unmapped names use EnvName.
type EnvProvider struct {
	Vars map[string]string
}

// Get returns the trimmed value of the variable for name.
func (p EnvProvider) Get(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSecretName, name)
	}
	key, ok := p.Vars[name]
	if !ok {
		key = EnvName(name)
	}
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%w: $%s not set", ErrSecretNotFound, key)
	}
	return unwrap(value), nil
}

// EnvName upper-cases name and replaces every character outside [A-Z0-9]
// with an underscore: "openai-key" becomes "OPENAI_KEY".
func EnvName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// Chain tries each provider in order and returns the first value found.
// Errors other than ErrSecretNotFound stop the search.
type Chain []Provider

// Get implements Provider.
func (c Chain) Get(ctx context.Context, name string) (string, error) {
	for _, p := range c {
		v, err := p.Get(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Compile-time interface checks.
var (
	_ Provider = DirProvider{}
	_ Provider = EnvProvider{}
	_ Provider = Chain{}
)

package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Default asset names.
const (
	DefaultPrompt   = "summary"
	DefaultTemplate = "page"
)

var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidName = errors.New("invalid asset name")
	ErrInvalidDir  = errors.New("invalid asset directory")
	ErrRead        = errors.New("failed to read asset")
)

//go:embed prompts templates
var builtin embed.FS

// Kind selects an asset family.
type Kind int

const (
	Prompt Kind = iota
	Template
)

func (k Kind) String() string {
	if k == Template {
		return "template"
	}
	return "prompt"
}

// file returns the slash-separated path of name within a layer.
func (k Kind) file(name string) string {
	if k == Template {
		return path.Join("templates", name+".html")
	}
	return path.Join("prompts", name+".txt")
}

// Bundle is the pair of assets a processor is built from.
type Bundle struct {
	Prompt   string
	Template string
}

// Library resolves assets through an ordered list of layers.
type Library struct {
	layers []fs.FS
	root   *os.Root
}

// Builtin returns a Library serving only the embedded assets.
func Builtin() *Library {
	return &Library{layers: []fs.FS{builtin}}
}

// Open returns a Library that reads dir first and falls back to the builtin
// assets. An empty dir yields Builtin().
func Open(dir string) (*Library, error) {
	if dir == "" {
		return Builtin(), nil
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	return &Library{layers: []fs.FS{root.FS(), builtin}, root: root}, nil
}

// Read returns the named asset of the given kind.
func (l *Library) Read(kind Kind, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	p := kind.file(name)
	for _, layer := range l.layers {
		data, err := fs.ReadFile(layer, p)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s %q: %v", ErrRead, kind, name, err)
		}
	}
	return "", fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}

// Bundle reads the named prompt and template together.
func (l *Library) Bundle(prompt, template string) (Bundle, error) {
	p, err := l.Read(Prompt, prompt)
	if err != nil {
		return Bundle{}, err
	}
	t, err := l.Read(Template, template)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Prompt: p, Template: t}, nil
}

// Close releases the override directory, if any.
func (l *Library) Close() error {
	if l.root == nil {
		return nil
	}
	return l.root.Close()
}

// ValidateName rejects names that could select a different file: empty
// names and names containing separators or dots.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

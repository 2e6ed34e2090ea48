package render

import (
	"html"
	"strings"

	"github.com/gohugoio/hugo-goldmark-extensions/passthrough"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// mathDelimiter is one LaTeX delimiter pair. Longer openers come first so
// $$ is never read as an empty $ span.
type mathDelimiter struct {
	open, close string
	block       bool
}

var mathDelimiters = []mathDelimiter{
	{open: "$$", close: "$$", block: true},
	{open: `\[`, close: `\]`, block: true},
	{open: "$", close: "$"},
	{open: `\(`, close: `\)`},
}

// newMathPassthrough keeps math away from emphasis and escape handling.
// Code spans, code blocks and link destinations are never scanned.
func newMathPassthrough() goldmark.Extender {
	var cfg passthrough.Config
	for _, d := range mathDelimiters {
		pair := passthrough.Delimiters{Open: d.open, Close: d.close}
		if d.block {
			cfg.BlockDelimiters = append(cfg.BlockDelimiters, pair)
		} else {
			cfg.InlineDelimiters = append(cfg.InlineDelimiters, pair)
		}
	}
	return passthrough.New(cfg)
}

// mathRenderer writes passthrough nodes as arithmatex markup with \( \)
// and \[ \] delimiters, which MathJax and KaTeX auto-render pick up.
type mathRenderer struct{}

// mathRendererPriority is lower than the passthrough extension's own
// renderer, so these funcs replace its defaults.
const mathRendererPriority = 10

func (mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(passthrough.KindPassthroughInline, renderMath)
	reg.Register(passthrough.KindPassthroughBlock, renderMath)
}

func renderMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}

	var raw strings.Builder
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			raw.Write(seg.Value(source))
		}
	} else {
		raw.Write(n.Text(source))
	}

	body, block := splitMath(raw.String())
	block = block || n.Type() == ast.TypeBlock
	if block {
		_, _ = w.WriteString(`<div class="arithmatex">\[` + "\n" + html.EscapeString(body) + "\n" + `\]</div>` + "\n")
	} else {
		_, _ = w.WriteString(`<span class="arithmatex">\(` + html.EscapeString(body) + `\)</span>`)
	}
	return ast.WalkSkipChildren, nil
}

// splitMath strips the delimiter pair from raw and reports whether it was
// a display pair. Content without a known pair is returned trimmed.
func splitMath(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	for _, d := range mathDelimiters {
		if len(s) >= len(d.open)+len(d.close) && strings.HasPrefix(s, d.open) && strings.HasSuffix(s, d.close) {
			return strings.TrimSpace(s[len(d.open) : len(s)-len(d.close)]), d.block
		}
	}
	return s, false
}

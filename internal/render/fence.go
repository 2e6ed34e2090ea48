package render

import (
	"bytes"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Fence placeholders use Private Use Area characters so Goldmark treats
// them as plain text. The block index sits between the two markers.
const (
	fenceStartPlaceholder = "\uE010" // U+E010: Private Use Area
	fenceEndPlaceholder   = "\uE011" // U+E011: Private Use Area
)

// placeholderStripper removes placeholder characters already present in
// the input, so only the pre-pass can produce a placeholder.
var placeholderStripper = strings.NewReplacer(fenceStartPlaceholder, "", fenceEndPlaceholder, "")

func stripPlaceholders(content string) string {
	if !strings.ContainsAny(content, fenceStartPlaceholder+fenceEndPlaceholder) {
		return content
	}
	return placeholderStripper.Replace(content)
}

const (
	fenceMarker     = "```"
	defaultFenceTag = "text"
)

// fenceState is the pre-pass state machine: outside a fence, or inside one
// with its declared language and the body collected so far.
type fenceState struct {
	inside bool
	lang   string
	body   []string
}

// highlighter renders a code block to class-based chroma HTML.
type highlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
	logger    *slog.Logger
}

func newHighlighter(styleName string, logger *slog.Logger) *highlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &highlighter{
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     style,
		logger:    logger,
	}
}

// Highlight never fails: an unknown language falls back to chroma's
// plain-text lexer and a formatter error degrades to an escaped <pre>.
func (h *highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		h.logger.Debug("render.fence.unknown_language", "lang", lang)
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return plainBlock(code)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return plainBlock(code)
	}
	return buf.String()
}

func plainBlock(code string) string {
	return `<pre class="chroma"><code>` + html.EscapeString(code) + "</code></pre>"
}

// rewriteFences scans content line by line and replaces each closed fence
// with a placeholder line. The highlighted markup is returned in blocks,
// indexed by placeholder number.
//
// A fence that never closes is dropped together with its body.
func rewriteFences(content string, h *highlighter) (string, []string) {
	if !strings.Contains(content, fenceMarker) {
		return content, nil
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	var blocks []string
	var st fenceState

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, fenceMarker) && st.inside:
			code := strings.Trim(strings.Join(st.body, "\n"), "\n")
			blocks = append(blocks, h.Highlight(code, st.lang))
			out = append(out, "", fencePlaceholder(len(blocks)-1), "")
			st = fenceState{}
		case strings.HasPrefix(line, fenceMarker):
			lang := strings.TrimSpace(line[len(fenceMarker):])
			if lang == "" {
				lang = defaultFenceTag
			}
			st = fenceState{inside: true, lang: lang}
		case st.inside:
			st.body = append(st.body, line)
		default:
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n"), blocks
}

func fencePlaceholder(i int) string {
	return fenceStartPlaceholder + strconv.Itoa(i) + fenceEndPlaceholder
}

// restoreFences swaps placeholders for highlighted blocks. A placeholder
// that Goldmark wrapped in its own paragraph loses the <p> wrapper.
func restoreFences(htmlContent string, blocks []string) string {
	for i, block := range blocks {
		token := fencePlaceholder(i)
		htmlContent = strings.Replace(htmlContent, "<p>"+token+"</p>", block, 1)
		htmlContent = strings.Replace(htmlContent, token, block, 1)
	}
	return htmlContent
}

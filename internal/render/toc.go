package render

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// tocMarker is the paragraph Goldmark emits for a "[TOC]" line.
const tocMarker = "<p>[TOC]</p>"

// headingInfo represents an extracted heading from HTML.
type headingInfo struct {
	Level int    // 1-6
	ID    string // anchor ID
	Text  string // heading text content
}

// headingPattern matches h1-h6 tags with id attribute.
// Captures: 1=level, 2=id, 3=inner HTML (may contain inline tags)
var headingPattern = regexp.MustCompile(`(?is)<h([1-6])[^>]*\bid="([^"]*)"[^>]*>(.*?)</h[1-6]>`)

// htmlTagPattern matches HTML tags for stripping from heading text.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTMLTags removes tags and decodes entities so the text is not
// double-escaped when written into the TOC.
func stripHTMLTags(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// extractHeadings returns every heading that carries an id.
func extractHeadings(htmlContent string) []headingInfo {
	matches := headingPattern.FindAllStringSubmatch(htmlContent, -1)
	if len(matches) == 0 {
		return nil
	}

	headings := make([]headingInfo, 0, len(matches))
	for _, m := range matches {
		level, _ := strconv.Atoi(m[1])
		headings = append(headings, headingInfo{
			Level: level,
			ID:    m[2],
			Text:  stripHTMLTags(m[3]),
		})
	}
	return headings
}

// generateTOC builds a nested list of anchor links. The shallowest heading
// becomes depth 1 and skipped levels (h2 -> h4) nest one step only.
func generateTOC(headings []headingInfo) string {
	if len(headings) == 0 {
		return ""
	}

	minLevel := headings[0].Level
	for _, h := range headings {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}

	var buf strings.Builder
	buf.WriteString(`<div class="toc">`)

	depth := 0
	for i, h := range headings {
		target := h.Level - minLevel + 1
		if target > depth+1 {
			target = depth + 1
		}

		switch {
		case target > depth:
			for depth < target {
				buf.WriteString("<ul>")
				depth++
			}
		case target < depth:
			for depth > target {
				buf.WriteString("</li></ul>")
				depth--
			}
			buf.WriteString("</li>")
		case i > 0:
			buf.WriteString("</li>")
		}

		buf.WriteString(`<li><a href="#`)
		buf.WriteString(html.EscapeString(h.ID))
		buf.WriteString(`">`)
		buf.WriteString(html.EscapeString(h.Text))
		buf.WriteString(`</a>`)
	}
	for depth > 0 {
		buf.WriteString("</li></ul>")
		depth--
	}

	buf.WriteString(`</div>`)
	return buf.String()
}

// expandTOC replaces every [TOC] paragraph with the generated table of
// contents. Without headings the marker is removed.
func expandTOC(htmlContent string) string {
	if !strings.Contains(htmlContent, tocMarker) {
		return htmlContent
	}
	toc := generateTOC(extractHeadings(htmlContent))
	return strings.ReplaceAll(htmlContent, tocMarker, toc)
}

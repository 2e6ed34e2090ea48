package render

import (
	"errors"
	"strings"
)

// ContentPlaceholder is replaced by the rendered fragment in page templates.
const ContentPlaceholder = "{{CONTENT}}"

// ErrMissingPlaceholder indicates a page template without {{CONTENT}}.
var ErrMissingPlaceholder = errors.New("page template missing " + ContentPlaceholder)

// Page embeds a rendered fragment into a page template and injects css as
// a <style> block. Every occurrence of the placeholder is replaced.
func Page(template, fragment, css string) (string, error) {
	if !strings.Contains(template, ContentPlaceholder) {
		return "", ErrMissingPlaceholder
	}
	page := strings.ReplaceAll(template, ContentPlaceholder, fragment)
	return injectCSS(page, css), nil
}

// injectCSS inserts a <style> block before </head>, after <body>, or at the
// start of the document, in that order of preference.
func injectCSS(htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes "</" so the stylesheet cannot close the <style> tag.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// Package render turns model-written Markdown summaries into HTML.
//
// Rendering happens in three stages:
//   - A fence pre-pass replaces every ``` block with chroma-highlighted markup
//   - Goldmark converts the remaining Markdown (GFM tables, heading anchors,
//     footnotes), with a math passthrough so LaTeX reaches the browser intact
//   - Placeholders are swapped back and a [TOC] marker expands into a
//     table of contents built from the heading anchors
//
// Goldmark runs without WithUnsafe. Pre-rendered markup travels through it
// as Private Use Area placeholders, the same way ==highlight== marks do in
// the Markdown preprocessor this package grew out of.
//
// Page assembly (template substitution and stylesheet injection) lives in
// page.go; a rendered fragment never carries <html> or <body>.
package render

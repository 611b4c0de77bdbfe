// Package content renders and sanitises user-authored comment text
package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
		),
	)

	// ugc allows the formatting markdown produces; strict strips all markup
	ugc    = newUGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// RenderMarkdown converts comment markdown to sanitised HTML
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return strict.Sanitize(source)
	}
	return string(ugc.SanitizeBytes(buf.Bytes()))
}

// Sanitize strips every HTML tag and trims surrounding whitespace. The result is
// plain text; entities produced by the policy are decoded again.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}

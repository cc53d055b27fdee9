// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package markdown renders untrusted course Markdown to sanitized HTML and
// provides the editor helpers used to build course content.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		// Raw HTML is let through so inline <video> blocks survive;
		// everything is sanitized afterwards.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	policy = newPolicy()
)

var widthPattern = regexp.MustCompile(`^[0-9]{1,4}%?$`)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("video", "source")
	p.AllowAttrs("controls").OnElements("video")
	p.AllowAttrs("width", "height").Matching(widthPattern).OnElements("video")
	p.AllowAttrs("src").OnElements("source")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^video/[a-z0-9.+-]+$`)).OnElements("source")

	// Inline media arrive as base64 data URIs. SVG is excluded because it
	// can carry script.
	p.AllowURLSchemeWithCustomPolicy("data", func(u *url.URL) bool {
		meta, _, ok := strings.Cut(u.Opaque, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return false
		}
		mediaType := strings.TrimSuffix(meta, ";base64")
		if strings.HasPrefix(mediaType, "image/svg") {
			return false
		}
		return strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/")
	})
	return p
}

// Render converts Markdown to sanitized HTML.
func Render(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	// bluemonday output is safe to embed.
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil // #nosec G203
}

// Sanitize cleans an HTML fragment with the course content policy.
func Sanitize(htmlSrc string) string {
	return policy.Sanitize(htmlSrc)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package markdown

import (
	"fmt"
	"strings"
)

// Action is a formatting toolbar button.
type Action string

// Toolbar actions
const (
	ActionH1     Action = "h1"
	ActionH2     Action = "h2"
	ActionH3     Action = "h3"
	ActionBold   Action = "bold"
	ActionItalic Action = "italic"
	ActionUList  Action = "ulist"
	ActionOList  Action = "olist"
	ActionLink   Action = "link"
)

const selectionMarker = "$SELECTION"

var templates = map[Action]string{
	ActionH1:     "# $SELECTION\n",
	ActionH2:     "## $SELECTION\n",
	ActionH3:     "### $SELECTION\n",
	ActionBold:   "**$SELECTION**",
	ActionItalic: "*$SELECTION*",
	ActionUList:  "- $SELECTION\n",
	ActionOList:  "1. $SELECTION\n",
	ActionLink:   "[$SELECTION](https://)",
}

// Actions returns the toolbar actions in display order.
func Actions() []Action {
	return []Action{ActionH1, ActionH2, ActionH3, ActionBold, ActionItalic, ActionUList, ActionOList, ActionLink}
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[a]; !ok {
		return "", fmt.Errorf("unknown formatting action %q", s)
	}
	return a, nil
}

// ApplyFormat wraps the selection [start, end) of text, counted in runes,
// with the action's template. Out-of-range offsets are clamped. It returns
// the new text and the cursor position just after the inserted snippet.
func ApplyFormat(text string, action Action, start, end int) (string, int, error) {
	tmpl, ok := templates[action]
	if !ok {
		return text, 0, fmt.Errorf("unknown formatting action %q", action)
	}
	out, cursor := insert(text, tmpl, start, end)
	return out, cursor, nil
}

// InsertAt replaces the selection [start, end) with snippet, where snippet
// may contain $SELECTION to keep the selected text.
func InsertAt(text, snippet string, start, end int) (string, int) {
	return insert(text, snippet, start, end)
}

func insert(text, snippet string, start, end int) (string, int) {
	r := []rune(text)
	start = clamp(start, 0, len(r))
	end = clamp(end, start, len(r))

	inserted := strings.Replace(snippet, selectionMarker, string(r[start:end]), 1)

	var b strings.Builder
	b.Grow(len(text) + len(inserted))
	b.WriteString(string(r[:start]))
	b.WriteString(inserted)
	b.WriteString(string(r[end:]))
	return b.String(), start + len([]rune(inserted))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ImageSnippet is the Markdown inserted for an inline image.
func ImageSnippet(src string) string {
	return "![Изображение](" + src + ")\n"
}

// VideoSnippet is the HTML block inserted for an inline video.
func VideoSnippet(src, mimeType string) string {
	return fmt.Sprintf("<video controls width=\"100%%\">\n  <source src=\"%s\" type=\"%s\">\n  Your browser does not support the video tag.\n</video>\n",
		escapeAttr(src), escapeAttr(mimeType))
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, encoded string) string {
	return "data:" + mimeType + ";base64," + encoded
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;").Replace(s)
}

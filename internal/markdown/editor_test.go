// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package markdown

import "testing"

func TestApplyFormat(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		action     Action
		start, end int
		want       string
		wantCursor int
	}{
		{"bold selection", "hello world", ActionBold, 0, 5, "**hello** world", 9},
		{"italic empty selection", "ab", ActionItalic, 1, 1, "a**b", 3},
		{"h1 cyrillic", "Привет мир", ActionH1, 0, 6, "# Привет\n мир", 9},
		{"h2", "x", ActionH2, 0, 1, "## x\n", 5},
		{"h3", "x", ActionH3, 0, 1, "### x\n", 6},
		{"unordered list", "item", ActionUList, 0, 4, "- item\n", 7},
		{"ordered list", "item", ActionOList, 0, 4, "1. item\n", 8},
		{"link on empty text", "", ActionLink, 0, 0, "[](https://)", 12},
		{"clamped range", "ab", ActionItalic, -3, 100, "*ab*", 4},
		{"end before start", "abc", ActionBold, 2, 1, "ab****c", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cursor, err := ApplyFormat(tt.text, tt.action, tt.start, tt.end)
			if err != nil {
				t.Fatalf("ApplyFormat: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if cursor != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", cursor, tt.wantCursor)
			}
		})
	}
}

func TestApplyFormatUnknownAction(t *testing.T) {
	got, _, err := ApplyFormat("keep", Action("strike"), 0, 4)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if got != "keep" {
		t.Errorf("text changed to %q", got)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(" " + string(a) + " ")
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}
	if _, err := ParseAction("underline"); err == nil {
		t.Error("ParseAction(underline) should fail")
	}
}

func TestInsertAt(t *testing.T) {
	got, cursor := InsertAt("ab", "<$SELECTION>", 1, 1)
	if got != "a<>b" || cursor != 3 {
		t.Errorf("InsertAt = %q, %d", got, cursor)
	}
}

func TestVideoSnippet(t *testing.T) {
	want := "<video controls width=\"100%\">\n  <source src=\"clip.mp4\" type=\"video/mp4\">\n  Your browser does not support the video tag.\n</video>\n"
	if got := VideoSnippet("clip.mp4", "video/mp4"); got != want {
		t.Errorf("VideoSnippet() = %q", got)
	}
	if got := VideoSnippet(`a"b`, "video/mp4"); got == want {
		t.Error("quotes not escaped")
	}
}

func TestDataURI(t *testing.T) {
	if got := DataURI("image/png", "AAA="); got != "data:image/png;base64,AAA=" {
		t.Errorf("DataURI() = %q", got)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "heading",
			src:  "# Введение\n",
			want: []string{"<h1>Введение</h1>"},
		},
		{
			name: "gfm table",
			src:  "| a | b |\n|---|---|\n| 1 | 2 |\n",
			want: []string{"<table>", "<td>1</td>"},
		},
		{
			name: "gfm strikethrough",
			src:  "~~old~~",
			want: []string{"<del>old</del>"},
		},
		{
			name:    "script stripped",
			src:     "hello <script>alert(1)</script>",
			want:    []string{"hello"},
			notWant: []string{"<script", "alert(1)</script>"},
		},
		{
			name:    "javascript link stripped",
			src:     "[click](javascript:alert(1))",
			want:    []string{"click"},
			notWant: []string{"javascript:"},
		},
		{
			name: "data uri image kept",
			src:  ImageSnippet("data:image/png;base64,iVBORw0KGgo="),
			want: []string{`<img src="data:image/png;base64,iVBORw0KGgo="`, `alt="Изображение"`},
		},
		{
			name:    "data uri html link stripped",
			src:     "[x](data:text/html;base64,PHNjcmlwdD4=)",
			notWant: []string{"data:text/html"},
		},
		{
			name:    "svg data uri stripped",
			src:     "![x](data:image/svg+xml;base64,PHN2Zz4=)",
			notWant: []string{"data:image/svg"},
		},
		{
			name: "inline video kept",
			src:  "Смотрите:\n\n" + VideoSnippet("data:video/mp4;base64,AAAA", "video/mp4"),
			want: []string{"<video", "controls", `width="100%"`, `type="video/mp4"`, "data:video/mp4;base64,AAAA"},
		},
		{
			name:    "event handlers stripped",
			src:     `<video controls onplay="alert(1)"><source src="clip.mp4" type="video/mp4"></video>`,
			want:    []string{"<video", `src="clip.mp4"`},
			notWant: []string{"onplay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render([]byte(tt.src))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := string(got)
			for _, w := range tt.want {
				if !strings.Contains(html, w) {
					t.Errorf("output missing %q:\n%s", w, html)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(html, nw) {
					t.Errorf("output contains %q:\n%s", nw, html)
				}
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	got, err := Render(nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.TrimSpace(string(got)) != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize(`<p onclick="x()">ok</p><iframe src="https://evil"></iframe>`)
	if got != "<p>ok</p>" {
		t.Errorf("Sanitize() = %q", got)
	}
}

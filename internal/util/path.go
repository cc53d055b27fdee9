// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// maxFileNameRunes caps the length of a referenced media file name.
const maxFileNameRunes = 128

// ErrBadFileName is returned when nothing usable is left of a file name.
var ErrBadFileName = errors.New("недопустимое имя файла")

// MediaFileName reduces name to a base file name that is safe inside a
// markdown link target: directories of either slash style are dropped, and
// spaces, brackets and control characters become underscores.
func MediaFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == ".." || base == "/" {
		return "", ErrBadFileName
	}

	var b strings.Builder
	n := 0
	for _, r := range base {
		if n == maxFileNameRunes {
			break
		}
		switch {
		case unicode.IsControl(r), unicode.IsSpace(r), strings.ContainsRune("()<>[]", r):
			r = '_'
		}
		b.WriteRune(r)
		n++
	}
	return b.String(), nil
}

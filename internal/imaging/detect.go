// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging validates course icons and inline content media, and
// renders icon thumbnails.
package imaging

import (
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/olegiv/knowledge-plus/internal/model"
)

const octetStream = "application/octet-stream"

// DetectMIME returns the media type of data, without parameters.
// The stdlib sniffer is tried first; the mimetype library covers the
// containers it does not know, such as QuickTime.
func DetectMIME(data []byte) string {
	if len(data) == 0 {
		return octetStream
	}
	mt := stripParams(http.DetectContentType(data))
	if mt == octetStream || strings.HasPrefix(mt, "video/") {
		if detected := stripParams(mimetype.Detect(data).String()); detected != octetStream {
			mt = detected
		}
	}
	return canonical(mt)
}

func stripParams(mt string) string {
	if idx := strings.Index(mt, ";"); idx != -1 {
		mt = mt[:idx]
	}
	return strings.TrimSpace(mt)
}

// canonical maps the aliases the two sniffers produce onto one name.
func canonical(mt string) string {
	switch mt {
	case "video/avi", "video/msvideo":
		return model.MimeTypeAVI
	case "image/jpg", "image/pjpeg":
		return model.MimeTypeJPEG
	}
	return mt
}

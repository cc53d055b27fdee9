// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Supported MIME types
const (
	MimeTypeJPEG     = "image/jpeg"
	MimeTypePNG      = "image/png"
	MimeTypeGIF      = "image/gif"
	MimeTypeWebP     = "image/webp"
	MimeTypeMP4      = "video/mp4"
	MimeTypeAVI      = "video/x-msvideo"
	MimeTypeMOV      = "video/quicktime"
	MimeTypeMarkdown = "text/markdown"
)

// Size limits for uploaded media.
const (
	MaxIconSize        = 6 << 20
	MaxContentImage    = 10 << 20
	MaxContentVideo    = 100 << 20
	InlineMediaMaxSize = 1 << 20 // payloads below this are embedded as data URIs
)

// IconTypes returns the MIME types accepted for course icons.
func IconTypes() []string {
	return []string{MimeTypeJPEG, MimeTypePNG, MimeTypeWebP}
}

// IsIconType checks if a MIME type is accepted for course icons.
func IsIconType(mimeType string) bool {
	for _, t := range IconTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// ContentImageTypes returns the image MIME types accepted inside course content.
func ContentImageTypes() []string {
	return []string{MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP}
}

// ContentVideoTypes returns the video MIME types accepted inside course content.
func ContentVideoTypes() []string {
	return []string{MimeTypeMP4, MimeTypeAVI, MimeTypeMOV}
}

// IsImageType returns true if the MIME type is an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// IsContentMediaType checks if a MIME type may be inserted into course content.
func IsContentMediaType(mimeType string) bool {
	for _, t := range ContentImageTypes() {
		if t == mimeType {
			return true
		}
	}
	for _, t := range ContentVideoTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

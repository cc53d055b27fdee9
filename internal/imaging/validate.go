// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"image"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// MediaKind distinguishes inline images from inline videos.
type MediaKind int

// Media kinds
const (
	MediaImage MediaKind = iota + 1
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ValidateIcon checks a course icon: JPEG, PNG or WebP by content and at
// most 6 MiB. It returns the detected MIME type.
func ValidateIcon(data []byte) (string, error) {
	mt := DetectMIME(data)
	if !model.IsIconType(mt) {
		return "", model.NewValidationError("icon", "Поддерживаемые форматы: JPEG, PNG, WebP")
	}
	if len(data) > model.MaxIconSize {
		return "", model.NewValidationError("icon", "Максимальный размер файла: 6MB")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", model.NewValidationError("icon", "Файл изображения поврежден")
	}
	return mt, nil
}

// ValidateContentMedia checks a file to be inserted into course content:
// images up to 10 MiB, videos up to 100 MiB.
func ValidateContentMedia(data []byte) (string, MediaKind, error) {
	mt := DetectMIME(data)
	if !model.IsContentMediaType(mt) {
		return "", 0, model.NewValidationError("media", "Неподдерживаемый формат файла")
	}
	if model.IsImageType(mt) {
		if len(data) > model.MaxContentImage {
			return "", 0, model.NewValidationError("media", "Максимальный размер изображения: 10 МБ")
		}
		return mt, MediaImage, nil
	}
	if len(data) > model.MaxContentVideo {
		return "", 0, model.NewValidationError("media", "Максимальный размер видео: 100 МБ")
	}
	return mt, MediaVideo, nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/cache"
	"github.com/olegiv/knowledge-plus/internal/imaging"
	"github.com/olegiv/knowledge-plus/internal/markdown"
	"github.com/olegiv/knowledge-plus/internal/middleware"
	"github.com/olegiv/knowledge-plus/internal/model"
)

// ContentResponse is the rendered content of a course.
type ContentResponse struct {
	CourseID int64  `json:"courseId"`
	HTML     string `json:"html"`
}

// CatalogResponse lists every lookup catalog.
type CatalogResponse struct {
	Categories   []model.CatalogEntry `json:"categories"`
	Levels       []model.CatalogEntry `json:"levels"`
	Ages         []model.CatalogEntry `json:"ages"`
	Monetization []model.CatalogEntry `json:"monetization"`
}

// Catalog handles GET /api/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, CatalogResponse{
		Categories:   h.catalog.Categories(),
		Levels:       h.catalog.Levels(),
		Ages:         h.catalog.Ages(),
		Monetization: h.catalog.Monetization(),
	}, nil)
}

// ListCourses handles GET /api/courses.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	filter, err := backend.ParseFilterQuery(r.URL.Query())
	if err != nil {
		WriteValidationError(w, model.FieldErrors(err))
		return
	}

	courses, err := h.backend.ListCourses(r.Context(), filter)
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось загрузить курсы")
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	WriteSuccess(w, courses, &Meta{Total: len(courses)})
}

// GetCourse handles GET /api/courses/{id}.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requireCourse(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, c, nil)
}

// CourseContent handles GET /api/courses/{id}/content. The sanitized HTML
// is cached until the course is updated.
func (h *Handler) CourseContent(w http.ResponseWriter, r *http.Request) {
	id, ok := courseIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.content.Remember(r.Context(), cache.CourseContentKey(id), func() (ContentResponse, error) {
		c, err := h.backend.GetCourse(r.Context(), id)
		if err != nil {
			return ContentResponse{}, err
		}
		html, err := markdown.Render(c.ContentBytes)
		if err != nil {
			return ContentResponse{}, fmt.Errorf("rendering course %d: %w", id, err)
		}
		return ContentResponse{CourseID: id, HTML: string(html)}, nil
	})
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось загрузить содержимое курса")
		return
	}
	WriteSuccess(w, resp, nil)
}

// CourseIcon handles GET /api/courses/{id}/icon. With ?size=thumb the icon
// is fitted into a 300x300 box; thumbnails are cached.
func (h *Handler) CourseIcon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requireCourse(w, r)
	if !ok {
		return
	}
	if !c.HasIcon() {
		WriteNotFound(w, "У курса нет иконки")
		return
	}

	data, mimeType := c.IconBytes, c.IconType
	switch size := r.URL.Query().Get("size"); size {
	case "", "original":
	case "thumb":
		var err error
		data, mimeType, err = h.thumbnail(r.Context(), c)
		if err != nil {
			h.logger.Error("failed to create thumbnail", "course_id", c.ID, "error", err)
			WriteInternalError(w, "Не удалось обработать изображение")
			return
		}
	default:
		WriteBadRequest(w, "Допустимые размеры: original, thumb")
		return
	}

	if mimeType == "" {
		mimeType = imaging.DetectMIME(data)
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) thumbnail(ctx context.Context, c *model.Course) ([]byte, string, error) {
	key := cache.CourseThumbKey(c.ID)
	if data, err := h.cache.Get(ctx, key); err == nil {
		return data, imaging.DetectMIME(data), nil
	}

	data, mimeType, err := imaging.Thumbnail(c.IconBytes, imaging.ThumbWidth, imaging.ThumbHeight)
	if err != nil {
		return nil, "", err
	}
	if err := h.cache.Set(ctx, key, data, 0); err != nil {
		h.logger.Warn("failed to cache thumbnail", "course_id", c.ID, "error", err)
	}
	return data, mimeType, nil
}

// CreateCourse handles POST /api/courses. The author is the token's user.
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	nc, err := backend.DecodeCourseForm(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if !model.IsValidation(err) && !errors.As(err, &tooLarge) {
			WriteBadRequest(w, "Некорректная форма курса")
			return
		}
		h.writeBackendError(w, r, err, "Не удалось создать курс")
		return
	}

	if len(nc.Icon) > 0 {
		iconType, err := imaging.ValidateIcon(nc.Icon)
		if err != nil {
			WriteValidationError(w, model.FieldErrors(err))
			return
		}
		nc.IconType = iconType
	}

	user := middleware.GetUser(r)
	nc.AuthorID = user.ID

	c, err := h.backend.CreateCourse(r.Context(), nc)
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось создать курс")
		return
	}
	h.logger.Info("course created", "course_id", c.ID, "user_id", user.ID)
	WriteCreated(w, c)
}

// UpdateCourse handles PUT /api/courses/{id}. Only the author may edit a
// course.
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireCourse(w, r)
	if !ok {
		return
	}

	user := middleware.GetUser(r)
	if !user.IsAuthorOf(existing) {
		WriteForbidden(w, "Редактировать курс может только автор")
		return
	}

	var patch model.CoursePatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteBadRequest(w, "Некорректное тело запроса")
		return
	}
	if patch.IconBytes != nil && len(*patch.IconBytes) > 0 {
		iconType, err := imaging.ValidateIcon(*patch.IconBytes)
		if err != nil {
			WriteValidationError(w, model.FieldErrors(err))
			return
		}
		patch.IconType = &iconType
	}

	c, err := h.backend.UpdateCourse(r.Context(), existing.ID, patch)
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось обновить курс")
		return
	}
	h.invalidate(r.Context(), c.ID)

	h.logger.Info("course updated", "course_id", c.ID, "user_id", user.ID)
	WriteSuccess(w, c, nil)
}

// invalidate drops the cached renderings of a course.
func (h *Handler) invalidate(ctx context.Context, courseID int64) {
	for _, key := range []string{cache.CourseContentKey(courseID), cache.CourseThumbKey(courseID)} {
		if err := h.cache.Delete(ctx, key); err != nil {
			h.logger.Warn("failed to invalidate cache", "key", key, "error", err)
		}
	}
}

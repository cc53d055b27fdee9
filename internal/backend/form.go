// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// Multipart field names of a course creation request.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldCourseFile     = "fileCourse"
	FieldIconFile       = "fileIcon"
	FieldAuthorID       = "idUsername"
	FieldMonetizationID = "idMonetizationStatus"
	FieldCategoryID     = "idCategory"
	FieldLevelID        = "idLevelKnowledge"
	FieldAgeID          = "idAgePeople"
	FieldPrice          = "price"
)

// CourseFileName is the file name sent with the Markdown content.
const CourseFileName = "course.md"

// MaxCourseFormSize bounds a decoded creation request.
const MaxCourseFormSize = model.MaxIconSize + model.MaxContentVideo + 1<<20

// FormFile is a file part of a multipart request.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// CourseForm is the multipart representation of a model.NewCourse.
type CourseForm struct {
	Fields map[string]string
	Files  []FormFile
}

// EncodeCourseForm converts a creation request into form fields and files.
func EncodeCourseForm(nc model.NewCourse) CourseForm {
	form := CourseForm{
		Fields: map[string]string{
			FieldTitle:          nc.Title,
			FieldDescription:    nc.Description,
			FieldAuthorID:       strconv.FormatInt(nc.AuthorID, 10),
			FieldMonetizationID: strconv.FormatInt(nc.MonetizationStatusID, 10),
			FieldCategoryID:     strconv.FormatInt(nc.CategoryID, 10),
			FieldLevelID:        strconv.FormatInt(nc.LevelID, 10),
			FieldAgeID:          strconv.FormatInt(nc.AgeID, 10),
			FieldPrice:          strconv.Itoa(nc.Price),
		},
		Files: []FormFile{{
			Field:       FieldCourseFile,
			Name:        CourseFileName,
			ContentType: model.MimeTypeMarkdown,
			Data:        nc.Content,
		}},
	}
	if len(nc.Icon) > 0 {
		form.Files = append(form.Files, FormFile{
			Field:       FieldIconFile,
			Name:        iconFileName(nc.IconType),
			ContentType: nc.IconType,
			Data:        nc.Icon,
		})
	}
	return form
}

func iconFileName(mimeType string) string {
	ext := ".bin"
	switch mimeType {
	case model.MimeTypeJPEG:
		ext = ".jpg"
	case model.MimeTypePNG:
		ext = ".png"
	case model.MimeTypeWebP:
		ext = ".webp"
	}
	return "icon-" + uuid.NewString() + ext
}

// Encode writes the form as a multipart body and returns the body and its
// Content-Type header.
func (f CourseForm) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range f.fieldOrder() {
		if err := w.WriteField(name, f.Fields[name]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	for _, file := range f.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("writing part %s: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// fieldOrder lists the fields in a stable order.
func (f CourseForm) fieldOrder() []string {
	order := []string{FieldTitle, FieldDescription, FieldAuthorID, FieldMonetizationID,
		FieldCategoryID, FieldLevelID, FieldAgeID, FieldPrice}
	out := make([]string, 0, len(f.Fields))
	for _, name := range order {
		if _, ok := f.Fields[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// DecodeCourseForm parses a multipart creation request. Callers bound the
// body size. Malformed numbers and a missing content file are reported as
// field errors.
func DecodeCourseForm(r *http.Request) (model.NewCourse, error) {
	var nc model.NewCourse

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nc, fmt.Errorf("parsing multipart form: %w", err)
	}

	errs := model.ValidationErrors{}
	parseInt := func(field string) int64 {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			return 0
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs.Add(field, "Некорректное число")
		}
		return v
	}

	nc.Title = r.FormValue(FieldTitle)
	nc.Description = r.FormValue(FieldDescription)
	nc.AuthorID = parseInt(FieldAuthorID)
	nc.MonetizationStatusID = parseInt(FieldMonetizationID)
	nc.CategoryID = parseInt(FieldCategoryID)
	nc.LevelID = parseInt(FieldLevelID)
	nc.AgeID = parseInt(FieldAgeID)
	nc.Price = int(parseInt(FieldPrice))

	content, _, err := readFormFile(r, FieldCourseFile)
	switch {
	case err == nil:
		nc.Content = content
	case errors.Is(err, http.ErrMissingFile):
		errs.Add(FieldCourseFile, "Содержимое курса обязательно")
	default:
		return nc, err
	}

	icon, iconType, err := readFormFile(r, FieldIconFile)
	switch {
	case err == nil:
		nc.Icon = icon
		nc.IconType = iconType
	case !errors.Is(err, http.ErrMissingFile):
		return nc, err
	}

	return nc, errs.Err()
}

func readFormFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", field, err)
	}
	return data, header.Header.Get("Content-Type"), nil
}

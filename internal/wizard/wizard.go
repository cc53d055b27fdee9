// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package wizard implements the three-stage course creation form: basic
// info, Markdown content, then access settings.
package wizard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/imaging"
	"github.com/olegiv/knowledge-plus/internal/markdown"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/util"
)

// Stage is a step of the wizard.
type Stage int

// Wizard stages
const (
	StageBasicInfo Stage = iota + 1
	StageContent
	StageAccess
	StageSubmitted
)

func (s Stage) String() string {
	switch s {
	case StageBasicInfo:
		return "basic info"
	case StageContent:
		return "content"
	case StageAccess:
		return "access settings"
	case StageSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Validation messages
const (
	MsgTitleRequired   = "Название курса обязательно"
	MsgContentRequired = "Содержимое курса обязательно"
	MsgAccessRequired  = "Выберите тип доступа"
	MsgPriceRequired   = "Стоимость обязательна для платного курса"
	MsgPriceMin        = "Минимальная стоимость: 1000"
	MsgPriceMax        = "Максимальная стоимость: 20000"
	MsgPriceRange      = "Стоимость должна быть от 1000 до 20000"
	MsgPriceDigits     = "Стоимость может содержать только цифры"
)

// ErrWrongStage is returned by operations that do not belong to the
// current stage.
var ErrWrongStage = errors.New("wizard: operation not available at this stage")

// Creator accepts the assembled creation request. course.Store implements it.
type Creator interface {
	CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error)
}

// Icon is an attached course icon.
type Icon struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Draft is the form state accumulated across stages.
type Draft struct {
	Title          string
	Description    string
	Icon           *Icon
	Markdown       string
	MonetizationID int64
	Price          string
	CategoryID     int64
	LevelID        int64
	AgeID          int64
}

// Wizard is a single course creation session. It is not safe for
// concurrent use.
type Wizard struct {
	catalog *catalog.Catalog
	creator Creator

	stage   Stage
	draft   Draft
	failed  bool
	lastErr error
}

// New starts a wizard at the basic info stage.
func New(cat *catalog.Catalog, creator Creator) *Wizard {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Wizard{catalog: cat, creator: creator, stage: StageBasicInfo}
}

// Stage returns the current stage.
func (w *Wizard) Stage() Stage { return w.stage }

// Draft returns a copy of the draft.
func (w *Wizard) Draft() Draft {
	d := w.draft
	if d.Icon != nil {
		icon := *d.Icon
		icon.Data = append([]byte(nil), d.Icon.Data...)
		d.Icon = &icon
	}
	return d
}

// Failed reports whether the last submission was rejected by the creator.
func (w *Wizard) Failed() bool { return w.failed }

// LastError returns the error of the last failed operation, if any.
func (w *Wizard) LastError() error { return w.lastErr }

// Reset discards the draft and returns to the first stage.
func (w *Wizard) Reset() {
	w.stage = StageBasicInfo
	w.draft = Draft{}
	w.failed = false
	w.lastErr = nil
}

func (w *Wizard) require(stage Stage) error {
	if w.stage != stage {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStage, w.stage, stage)
	}
	return nil
}

func (w *Wizard) reject(err error) error {
	w.lastErr = err
	return err
}

// Next advances one stage when the current stage's guard passes.
func (w *Wizard) Next() error {
	switch w.stage {
	case StageBasicInfo:
		if strings.TrimSpace(w.draft.Title) == "" {
			return w.reject(model.NewValidationError("title", MsgTitleRequired))
		}
		w.stage = StageContent
	case StageContent:
		// Empty content is allowed here and rejected at submission.
		w.stage = StageAccess
		w.applyDefaults()
	default:
		return w.reject(fmt.Errorf("%w: cannot advance from %s", ErrWrongStage, w.stage))
	}
	w.lastErr = nil
	return nil
}

// Back returns to the previous stage. The draft is kept.
func (w *Wizard) Back() error {
	switch w.stage {
	case StageContent:
		w.stage = StageBasicInfo
	case StageAccess:
		w.stage = StageContent
	default:
		return w.reject(fmt.Errorf("%w: cannot go back from %s", ErrWrongStage, w.stage))
	}
	return nil
}

// SetTitle sets the course title.
func (w *Wizard) SetTitle(title string) error {
	if err := w.require(StageBasicInfo); err != nil {
		return err
	}
	w.draft.Title = title
	return nil
}

// SetDescription sets the optional description.
func (w *Wizard) SetDescription(desc string) error {
	if err := w.require(StageBasicInfo); err != nil {
		return err
	}
	w.draft.Description = desc
	return nil
}

// AttachIcon validates data as a course icon and attaches it. A rejected
// file leaves the draft unchanged.
func (w *Wizard) AttachIcon(name string, data []byte) error {
	if err := w.require(StageBasicInfo); err != nil {
		return err
	}
	mimeType, err := imaging.ValidateIcon(data)
	if err != nil {
		return w.reject(err)
	}
	w.draft.Icon = &Icon{Name: name, MIMEType: mimeType, Data: append([]byte(nil), data...)}
	return nil
}

// RemoveIcon detaches the icon.
func (w *Wizard) RemoveIcon() error {
	if err := w.require(StageBasicInfo); err != nil {
		return err
	}
	w.draft.Icon = nil
	return nil
}

// SetMarkdown replaces the content.
func (w *Wizard) SetMarkdown(src string) error {
	if err := w.require(StageContent); err != nil {
		return err
	}
	w.draft.Markdown = src
	return nil
}

// ApplyFormat wraps the selection [start, end) of the content with a
// toolbar template and returns the new cursor position.
func (w *Wizard) ApplyFormat(action markdown.Action, start, end int) (int, error) {
	if err := w.require(StageContent); err != nil {
		return 0, err
	}
	out, cursor, err := markdown.ApplyFormat(w.draft.Markdown, action, start, end)
	if err != nil {
		return 0, w.reject(err)
	}
	w.draft.Markdown = out
	return cursor, nil
}

// InsertMedia inserts an image or video at cursor and returns the cursor
// after the snippet. Files under model.InlineMediaMaxSize are embedded as
// data URIs; larger ones are referenced by file name.
func (w *Wizard) InsertMedia(name string, data []byte, cursor int) (int, error) {
	if err := w.require(StageContent); err != nil {
		return 0, err
	}
	mimeType, kind, err := imaging.ValidateContentMedia(data)
	if err != nil {
		return 0, w.reject(err)
	}

	var src string
	if len(data) < model.InlineMediaMaxSize {
		src = markdown.DataURI(mimeType, base64.StdEncoding.EncodeToString(data))
	} else {
		src, err = util.MediaFileName(name)
		if err != nil {
			return 0, w.reject(model.NewValidationError("media", err.Error()))
		}
	}

	snippet := markdown.ImageSnippet(src)
	if kind == imaging.MediaVideo {
		snippet = markdown.VideoSnippet(src, mimeType)
	}
	out, next := markdown.InsertAt(w.draft.Markdown, snippet, cursor, cursor)
	w.draft.Markdown = out
	return next, nil
}

// applyDefaults fills unset access settings on entry to the last stage.
func (w *Wizard) applyDefaults() {
	if w.draft.MonetizationID == 0 {
		w.draft.MonetizationID = model.MonetizationFree
	}
	if w.draft.CategoryID == 0 {
		w.draft.CategoryID = w.catalog.First(catalog.KindCategory).ID
	}
	if w.draft.LevelID == 0 {
		w.draft.LevelID = w.catalog.First(catalog.KindLevel).ID
	}
	if w.draft.AgeID == 0 {
		w.draft.AgeID = w.catalog.First(catalog.KindAge).ID
	}
}

// SetMonetization selects paid or free access. Switching to free clears
// the price.
func (w *Wizard) SetMonetization(id int64) error {
	if err := w.require(StageAccess); err != nil {
		return err
	}
	if _, ok := w.catalog.Lookup(catalog.KindMonetization, id); !ok {
		return w.reject(model.NewValidationError("monetizationStatusId", MsgAccessRequired))
	}
	w.draft.MonetizationID = id
	if id != model.MonetizationPaid {
		w.draft.Price = ""
	}
	return nil
}

// SetPrice sets the price input. Input with anything but digits is
// ignored.
func (w *Wizard) SetPrice(s string) error {
	if err := w.require(StageAccess); err != nil {
		return err
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return w.reject(model.NewValidationError("price", MsgPriceDigits))
		}
	}
	w.draft.Price = s
	return nil
}

// SetCategory selects a catalog category.
func (w *Wizard) SetCategory(id int64) error {
	return w.setEntry(catalog.KindCategory, "category", id, &w.draft.CategoryID)
}

// SetLevel selects a knowledge level.
func (w *Wizard) SetLevel(id int64) error {
	return w.setEntry(catalog.KindLevel, "level", id, &w.draft.LevelID)
}

// SetAge selects an age restriction.
func (w *Wizard) SetAge(id int64) error {
	return w.setEntry(catalog.KindAge, "age", id, &w.draft.AgeID)
}

func (w *Wizard) setEntry(kind catalog.Kind, field string, id int64, dst *int64) error {
	if err := w.require(StageAccess); err != nil {
		return err
	}
	if _, ok := w.catalog.Lookup(kind, id); !ok {
		return w.reject(model.NewValidationError(field, "Неизвестное значение"))
	}
	*dst = id
	return nil
}

// PriceError is the live message for the price input, empty when the price
// is acceptable or the course is free.
func (w *Wizard) PriceError() string {
	if w.draft.MonetizationID != model.MonetizationPaid {
		return ""
	}
	if w.draft.Price == "" {
		return MsgPriceRequired
	}
	p, err := strconv.Atoi(w.draft.Price)
	switch {
	case err != nil:
		return MsgPriceMax
	case p < model.MinPaidPrice:
		return MsgPriceMin
	case p > model.MaxPaidPrice:
		return MsgPriceMax
	}
	return ""
}

// validate runs the submission guards.
func (w *Wizard) validate() (price int, err error) {
	if strings.TrimSpace(w.draft.Title) == "" {
		return 0, model.NewValidationError("title", MsgTitleRequired)
	}
	if strings.TrimSpace(w.draft.Markdown) == "" {
		return 0, model.NewValidationError("content", MsgContentRequired)
	}
	switch w.draft.MonetizationID {
	case model.MonetizationFree:
		return 0, nil
	case model.MonetizationPaid:
		if w.draft.Price == "" {
			return 0, model.NewValidationError("price", MsgPriceRequired)
		}
		p, err := strconv.Atoi(w.draft.Price)
		if err != nil || p < model.MinPaidPrice || p > model.MaxPaidPrice {
			return 0, model.NewValidationError("price", MsgPriceRange)
		}
		return p, nil
	default:
		return 0, model.NewValidationError("monetizationStatusId", MsgAccessRequired)
	}
}

// request builds the creation request. Free courses always carry price 0.
func (w *Wizard) request(author *model.User, price int) model.NewCourse {
	nc := model.NewCourse{
		Title:                strings.TrimSpace(w.draft.Title),
		Description:          w.draft.Description,
		CategoryID:           w.draft.CategoryID,
		LevelID:              w.draft.LevelID,
		AgeID:                w.draft.AgeID,
		MonetizationStatusID: w.draft.MonetizationID,
		Price:                price,
		Content:              []byte(w.draft.Markdown),
	}
	if author != nil {
		nc.AuthorID = author.ID
	}
	if w.draft.Icon != nil {
		nc.Icon = append([]byte(nil), w.draft.Icon.Data...)
		nc.IconType = w.draft.Icon.MIMEType
	}
	return nc
}

// Payload returns the multipart form the draft would be submitted as.
func (w *Wizard) Payload(author *model.User) (backend.CourseForm, error) {
	price, err := w.validate()
	if err != nil {
		return backend.CourseForm{}, err
	}
	return backend.EncodeCourseForm(w.request(author, price)), nil
}

// Submit validates the draft and hands it to the creator. On success the
// draft is discarded and the new course id returned. On failure the wizard
// stays at the access stage with the draft intact; it never retries.
func (w *Wizard) Submit(ctx context.Context, author *model.User) (int64, error) {
	if err := w.require(StageAccess); err != nil {
		return 0, err
	}
	if author == nil {
		return 0, w.reject(model.ErrNoSession)
	}
	price, err := w.validate()
	if err != nil {
		return 0, w.reject(err)
	}

	c, err := w.creator.CreateCourse(ctx, w.request(author, price))
	if err != nil {
		w.failed = true
		return 0, w.reject(err)
	}

	w.stage = StageSubmitted
	w.draft = Draft{}
	w.failed = false
	w.lastErr = nil
	return c.ID, nil
}

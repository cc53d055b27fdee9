// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/knowledge-plus/internal/app"
	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/imaging"
	"github.com/olegiv/knowledge-plus/internal/markdown"
	"github.com/olegiv/knowledge-plus/internal/model"
)

const msgAuthorOnly = "Редактировать курс может только автор"

// resolveEntry accepts a catalog id or an exact label.
func resolveEntry(cat *catalog.Catalog, kind catalog.Kind, raw string) (model.CatalogEntry, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if e, ok := cat.Lookup(kind, id); ok {
			return e, nil
		}
	} else if e, ok := cat.LookupLabel(kind, raw); ok {
		return e, nil
	}
	return model.CatalogEntry{}, model.NewValidationError(string(kind), fmt.Sprintf("Неизвестное значение %q", raw))
}

// resolveAccess maps "paid", "free" or a monetization id to a status id.
func resolveAccess(cat *catalog.Catalog, raw string) (int64, error) {
	switch tier, _ := model.ParsePriceTier(raw); tier {
	case model.PriceTierPaid:
		return model.MonetizationPaid, nil
	case model.PriceTierFree:
		return model.MonetizationFree, nil
	}
	e, err := resolveEntry(cat, catalog.KindMonetization, raw)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// readInput reads path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func parseCourseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid course id %q", raw)
	}
	return id, nil
}

func newCatalogCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List categories, levels, ages and access types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			lists := []struct {
				title   string
				kind    catalog.Kind
				entries []model.CatalogEntry
			}{
				{"Категории", catalog.KindCategory, cat.Categories()},
				{"Уровни", catalog.KindLevel, cat.Levels()},
				{"Возраст", catalog.KindAge, cat.Ages()},
				{"Доступ", catalog.KindMonetization, cat.Monetization()},
			}

			byKind := make(map[catalog.Kind][]model.CatalogEntry, len(lists))
			for _, l := range lists {
				byKind[l.kind] = l.entries
			}
			return c.emit(cmd, byKind, func(w io.Writer) {
				for i, l := range lists {
					if i > 0 {
						_, _ = fmt.Fprintln(w)
					}
					_, _ = fmt.Fprintf(w, "%s:\n", l.title)
					for _, e := range l.entries {
						_, _ = fmt.Fprintf(w, "  %d\t%s\n", e.ID, e.Label)
					}
				}
			})
		},
	}
}

func newCoursesCmd(c *cli) *cobra.Command {
	var search, category, level, age, price string
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				q := url.Values{}
				q.Set("search", search)
				q.Set("price", price)
				for _, f := range []struct {
					name string
					kind catalog.Kind
					raw  string
				}{
					{"category", catalog.KindCategory, category},
					{"level", catalog.KindLevel, level},
					{"age", catalog.KindAge, age},
				} {
					if f.raw == "" {
						continue
					}
					e, err := resolveEntry(a.Catalog, f.kind, f.raw)
					if err != nil {
						return err
					}
					q.Set(f.name, strconv.FormatInt(e.ID, 10))
				}

				filter, err := backend.ParseFilterQuery(q)
				if err != nil {
					return err
				}
				courses, err := a.Courses.FetchCourses(ctx, filter)
				if err != nil {
					return reported(a.Courses.State().Error, err)
				}
				return c.emit(cmd, courses, func(w io.Writer) {
					if len(courses) == 0 {
						_, _ = fmt.Fprintln(w, "Курсы не найдены")
						return
					}
					_, _ = fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tКАТЕГОРИЯ\tУРОВЕНЬ\tВОЗРАСТ\tДОСТУП")
					for i := range courses {
						printCourseRow(w, &courses[i])
					}
				})
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or description")
	cmd.Flags().StringVar(&category, "category", "", "category id or label")
	cmd.Flags().StringVar(&level, "level", "", "knowledge level id or label")
	cmd.Flags().StringVar(&age, "age", "", "age restriction id or label")
	cmd.Flags().StringVar(&price, "price", "", "free or paid")
	return cmd
}

func newCourseCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Show, create or edit a single course",
	}
	cmd.AddCommand(newCourseShowCmd(c), newCourseCreateCmd(c), newCourseUpdateCmd(c))
	return cmd
}

func newCourseShowCmd(c *cli) *cobra.Command {
	var (
		asHTML  bool
		iconOut string
		thumb   bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a course and its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCourseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				course, err := a.Courses.GetCourseByID(ctx, id)
				if err != nil {
					return err
				}
				if course == nil {
					return fmt.Errorf("course %d: %w", id, model.ErrNotFound)
				}

				if iconOut != "" {
					if err := writeIcon(course, iconOut, thumb); err != nil {
						return err
					}
				}

				content := string(course.ContentBytes)
				if asHTML {
					html, err := markdown.Render(course.ContentBytes)
					if err != nil {
						return fmt.Errorf("rendering content: %w", err)
					}
					content = string(html)
				}

				return c.emit(cmd, course, func(w io.Writer) {
					printCourse(w, course)
					if content != "" {
						_, _ = fmt.Fprintf(w, "\n%s\n", content)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render content as sanitized HTML")
	cmd.Flags().StringVar(&iconOut, "icon-out", "", "write the icon to this file")
	cmd.Flags().BoolVar(&thumb, "thumb", false, "write a thumbnail instead of the original icon")
	return cmd
}

func writeIcon(course *model.Course, path string, thumb bool) error {
	if !course.HasIcon() {
		return fmt.Errorf("course %d has no icon", course.ID)
	}
	data := course.IconBytes
	if thumb {
		var err error
		data, _, err = imaging.Thumbnail(data, imaging.ThumbWidth, imaging.ThumbHeight)
		if err != nil {
			return fmt.Errorf("creating thumbnail: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing icon: %w", err)
	}
	return nil
}

type createOptions struct {
	title       string
	description string
	icon        string
	content     string
	media       []string
	access      string
	price       string
	category    string
	level       string
	age         string
}

func newCourseCreateCmd(c *cli) *cobra.Command {
	var opts createOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a course through the three-step wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				user, err := requireUser(a)
				if err != nil {
					return err
				}
				id, err := runWizard(ctx, cmd, a, user, opts)
				if err != nil {
					return err
				}
				return c.emit(cmd, map[string]int64{"id": id}, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "Курс создан, id %d\n", id)
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "course title")
	f.StringVar(&opts.description, "description", "", "short description")
	f.StringVar(&opts.icon, "icon", "", "icon image file (PNG, JPEG, GIF or WebP)")
	f.StringVar(&opts.content, "content", "", "markdown file, - for stdin")
	f.StringSliceVar(&opts.media, "media", nil, "image or video files appended to the content")
	f.StringVar(&opts.access, "access", "", "free or paid (default free)")
	f.StringVar(&opts.price, "price", "", "price of a paid course")
	f.StringVar(&opts.category, "category", "", "category id or label")
	f.StringVar(&opts.level, "level", "", "knowledge level id or label")
	f.StringVar(&opts.age, "age", "", "age restriction id or label")
	return cmd
}

// runWizard feeds the options through the wizard stages and submits.
func runWizard(ctx context.Context, cmd *cobra.Command, a *app.Context, user *model.User, opts createOptions) (int64, error) {
	w := a.NewWizard()

	// Basic info
	if err := w.SetTitle(opts.title); err != nil {
		return 0, err
	}
	if err := w.SetDescription(opts.description); err != nil {
		return 0, err
	}
	if opts.icon != "" {
		data, err := readInput(cmd, opts.icon)
		if err != nil {
			return 0, err
		}
		if err := w.AttachIcon(filepath.Base(opts.icon), data); err != nil {
			return 0, err
		}
	}
	if err := w.Next(); err != nil {
		return 0, err
	}

	// Content
	if opts.content != "" {
		data, err := readInput(cmd, opts.content)
		if err != nil {
			return 0, err
		}
		if err := w.SetMarkdown(string(data)); err != nil {
			return 0, err
		}
	}
	for _, path := range opts.media {
		data, err := readInput(cmd, path)
		if err != nil {
			return 0, err
		}
		end := len(w.Draft().Markdown)
		if _, err := w.InsertMedia(filepath.Base(path), data, end); err != nil {
			return 0, err
		}
	}
	if err := w.Next(); err != nil {
		return 0, err
	}

	// Access settings
	if opts.access != "" {
		id, err := resolveAccess(a.Catalog, opts.access)
		if err != nil {
			return 0, err
		}
		if err := w.SetMonetization(id); err != nil {
			return 0, err
		}
	}
	if opts.price != "" {
		if err := w.SetPrice(opts.price); err != nil {
			return 0, err
		}
	}
	for _, f := range []struct {
		kind catalog.Kind
		raw  string
		set  func(int64) error
	}{
		{catalog.KindCategory, opts.category, w.SetCategory},
		{catalog.KindLevel, opts.level, w.SetLevel},
		{catalog.KindAge, opts.age, w.SetAge},
	} {
		if f.raw == "" {
			continue
		}
		e, err := resolveEntry(a.Catalog, f.kind, f.raw)
		if err != nil {
			return 0, err
		}
		if err := f.set(e.ID); err != nil {
			return 0, err
		}
	}

	id, err := w.Submit(ctx, user)
	if err != nil {
		if msg := a.Courses.State().Error; msg != "" && !model.IsValidation(err) {
			return 0, reported(msg, err)
		}
		return 0, err
	}
	return id, nil
}

type updateOptions struct {
	title       string
	description string
	icon        string
	content     string
	access      string
	price       int
	category    string
	level       string
	age         string
}

func newCourseUpdateCmd(c *cli) *cobra.Command {
	var opts updateOptions
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a course you authored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCourseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				user, err := requireUser(a)
				if err != nil {
					return err
				}
				existing, err := a.Courses.GetCourseByID(ctx, id)
				if err != nil {
					return err
				}
				if existing == nil {
					return fmt.Errorf("course %d: %w", id, model.ErrNotFound)
				}
				if !user.IsAuthorOf(existing) {
					return errors.New(msgAuthorOnly)
				}

				patch, err := buildPatch(cmd, a.Catalog, opts)
				if err != nil {
					return err
				}
				if patch.IsEmpty() {
					return errors.New("nothing to update")
				}

				updated, err := a.Courses.UpdateCourse(ctx, id, patch)
				if err != nil {
					if model.IsValidation(err) {
						return err
					}
					return reported(a.Courses.State().Error, err)
				}
				return c.emit(cmd, updated, func(w io.Writer) { printCourse(w, updated) })
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "new title")
	f.StringVar(&opts.description, "description", "", "new description")
	f.StringVar(&opts.icon, "icon", "", "new icon image file")
	f.StringVar(&opts.content, "content", "", "new markdown file, - for stdin")
	f.StringVar(&opts.access, "access", "", "free or paid")
	f.IntVar(&opts.price, "price", 0, "new price")
	f.StringVar(&opts.category, "category", "", "category id or label")
	f.StringVar(&opts.level, "level", "", "knowledge level id or label")
	f.StringVar(&opts.age, "age", "", "age restriction id or label")
	return cmd
}

// buildPatch includes only the flags given on the command line.
func buildPatch(cmd *cobra.Command, cat *catalog.Catalog, opts updateOptions) (model.CoursePatch, error) {
	var patch model.CoursePatch
	changed := cmd.Flags().Changed

	if changed("title") {
		patch.Title = &opts.title
	}
	if changed("description") {
		patch.Description = &opts.description
	}
	if changed("icon") {
		data, err := readInput(cmd, opts.icon)
		if err != nil {
			return patch, err
		}
		mimeType, err := imaging.ValidateIcon(data)
		if err != nil {
			return patch, err
		}
		patch.IconBytes = &data
		patch.IconType = &mimeType
	}
	if changed("content") {
		data, err := readInput(cmd, opts.content)
		if err != nil {
			return patch, err
		}
		patch.ContentBytes = &data
	}
	if changed("access") {
		id, err := resolveAccess(cat, opts.access)
		if err != nil {
			return patch, err
		}
		patch.MonetizationStatusID = &id
		if id == model.MonetizationFree && !changed("price") {
			zero := 0
			patch.Price = &zero
		}
	}
	if changed("price") {
		patch.Price = &opts.price
	}

	for _, f := range []struct {
		flag string
		kind catalog.Kind
		raw  string
		dst  **string
	}{
		{"category", catalog.KindCategory, opts.category, &patch.Category},
		{"level", catalog.KindLevel, opts.level, &patch.LevelKnowledge},
		{"age", catalog.KindAge, opts.age, &patch.AgePeople},
	} {
		if !changed(f.flag) {
			continue
		}
		e, err := resolveEntry(cat, f.kind, f.raw)
		if err != nil {
			return patch, err
		}
		label := e.Label
		*f.dst = &label
	}
	return patch, nil
}

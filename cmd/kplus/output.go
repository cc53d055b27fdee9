// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// emit prints v as JSON with --json, otherwise through text.
func (c *cli) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func printUser(w io.Writer, u *model.User) {
	_, _ = fmt.Fprintf(w, "%s\t(id %d, role %d)\n", u.Login, u.ID, u.Role)
}

func accessLabel(c *model.Course) string {
	if c.IsPaid() {
		return fmt.Sprintf("%d ₽", c.Price)
	}
	return "бесплатно"
}

func printCourseRow(w io.Writer, c *model.Course) {
	_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
		c.ID, c.Title, c.Category, c.LevelKnowledge, c.AgePeople, accessLabel(c))
}

func printCourse(w io.Writer, c *model.Course) {
	_, _ = fmt.Fprintf(w, "ID:\t%d\n", c.ID)
	_, _ = fmt.Fprintf(w, "Название:\t%s\n", c.Title)
	if c.Description != "" {
		_, _ = fmt.Fprintf(w, "Описание:\t%s\n", c.Description)
	}
	_, _ = fmt.Fprintf(w, "Категория:\t%s\n", c.Category)
	_, _ = fmt.Fprintf(w, "Уровень:\t%s\n", c.LevelKnowledge)
	_, _ = fmt.Fprintf(w, "Возраст:\t%s\n", c.AgePeople)
	_, _ = fmt.Fprintf(w, "Доступ:\t%s\n", accessLabel(c))
	_, _ = fmt.Fprintf(w, "Автор:\t%d\n", c.AuthorID)
	if !c.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Создан:\t%s\n", c.CreatedAt.Format("2006-01-02 15:04"))
	}
	if c.HasIcon() {
		_, _ = fmt.Fprintf(w, "Иконка:\t%s, %d байт\n", c.IconType, len(c.IconBytes))
	}
}

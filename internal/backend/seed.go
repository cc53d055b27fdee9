// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"time"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// sampleCourses is the collection a fresh store starts with.
func sampleCourses(now time.Time) []model.Course {
	return []model.Course{
		{
			ID:                   1,
			Title:                "Введение в веб-разработку",
			Description:          "Базовый курс по HTML, CSS и JavaScript",
			Category:             "Программирование",
			LevelKnowledge:       "Начинающий",
			AgePeople:            "12+",
			MonetizationStatusID: model.MonetizationFree,
			Price:                0,
			CreatedAt:            now,
			ContentBytes:         []byte("# Введение в веб-разработку\n\nHTML задает структуру страницы, CSS отвечает за оформление, JavaScript добавляет поведение.\n"),
		},
		{
			ID:                   2,
			Title:                "UI/UX Дизайн с нуля",
			Description:          "Основы дизайна пользовательских интерфейсов",
			Category:             "Дизайн",
			LevelKnowledge:       "Средний",
			AgePeople:            "16+",
			MonetizationStatusID: model.MonetizationPaid,
			Price:                2999,
			CreatedAt:            now,
			ContentBytes:         []byte("# UI/UX Дизайн с нуля\n\n## Исследование пользователей\n\n- интервью\n- прототипы\n- тестирование\n"),
		},
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"log/slog"
	"strings"
	"time"
)

const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

const (
	EventCategoryAuth    = "auth"
	EventCategoryCourse  = "course"
	EventCategorySession = "session"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)

// Event is a row of the server event log. Metadata holds a flat JSON
// object of the log attributes.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// EventLevelFor folds a slog level into one of the event levels.
func EventLevelFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return EventLevelError
	case level >= slog.LevelWarn:
		return EventLevelWarning
	}
	return EventLevelInfo
}

// eventKeywords are checked in order; the first category with a keyword
// contained in the message wins.
var eventKeywords = []struct {
	category string
	words    []string
}{
	{EventCategoryAuth, []string{"auth", "login", "logout", "password", "regist"}},
	{EventCategorySession, []string{"session", "token"}},
	{EventCategoryCourse, []string{"course", "content"}},
	{EventCategoryCache, []string{"cache"}},
}

// ClassifyEvent infers the category of a log message. It returns
// EventCategorySystem when no keyword matches.
func ClassifyEvent(message string) string {
	message = strings.ToLower(message)
	for _, k := range eventKeywords {
		for _, w := range k.words {
			if strings.Contains(message, w) {
				return k.category
			}
		}
	}
	return EventCategorySystem
}

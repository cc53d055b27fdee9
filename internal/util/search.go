// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides text helpers for search matching and file names.
package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSearch case-folds s, strips combining marks and collapses
// whitespace, so "  Ёлка  ДИЗАЙН" and "елка дизайн" compare equal.
func NormalizeSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = cases.Fold().String(result)
	return strings.Join(strings.Fields(result), " ")
}

// MatchesSearch reports whether text contains query after normalization.
// An empty query matches everything.
func MatchesSearch(text, query string) bool {
	q := NormalizeSearch(query)
	if q == "" {
		return true
	}
	return strings.Contains(NormalizeSearch(text), q)
}

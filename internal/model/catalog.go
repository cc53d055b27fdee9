// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// CatalogEntry is an immutable lookup value (category, level, age restriction
// or monetization type).
type CatalogEntry struct {
	ID    int64  `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// PriceTier selects free or paid courses in a filter.
type PriceTier string

// Price tiers. The empty tier matches every course.
const (
	PriceTierAny  PriceTier = ""
	PriceTierFree PriceTier = "free"
	PriceTierPaid PriceTier = "paid"
)

// ParsePriceTier parses a tier name, rejecting unknown values.
func ParsePriceTier(s string) (PriceTier, bool) {
	switch PriceTier(strings.ToLower(strings.TrimSpace(s))) {
	case PriceTierAny:
		return PriceTierAny, true
	case PriceTierFree:
		return PriceTierFree, true
	case PriceTierPaid:
		return PriceTierPaid, true
	default:
		return PriceTierAny, false
	}
}

// Matches reports whether a course with the given monetization status falls in the tier.
func (t PriceTier) Matches(monetizationStatusID int64) bool {
	switch t {
	case PriceTierFree:
		return monetizationStatusID == MonetizationFree
	case PriceTierPaid:
		return monetizationStatusID == MonetizationPaid
	default:
		return true
	}
}

// CourseFilter narrows a course listing. Zero values match everything.
type CourseFilter struct {
	Search     string    `json:"search,omitempty"`
	CategoryID int64     `json:"category,omitempty"`
	LevelID    int64     `json:"level,omitempty"`
	AgeID      int64     `json:"age,omitempty"`
	Price      PriceTier `json:"price,omitempty"`
}

// IsZero returns true if the filter matches every course.
func (f CourseFilter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.CategoryID == 0 && f.LevelID == 0 &&
		f.AgeID == 0 && f.Price == PriceTierAny
}

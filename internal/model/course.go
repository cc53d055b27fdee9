// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"
)

// Monetization statuses
const (
	MonetizationPaid int64 = 1
	MonetizationFree int64 = 2
)

// Price bounds for paid courses, inclusive.
const (
	MinPaidPrice = 1000
	MaxPaidPrice = 20000
)

// Course is a published course record.
type Course struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Category             string    `json:"category"`
	LevelKnowledge       string    `json:"levelKnowledge"`
	AgePeople            string    `json:"agePeople"`
	MonetizationStatusID int64     `json:"monetizationStatusId"`
	Price                int       `json:"price"`
	CreatedAt            time.Time `json:"createdAt"`
	AuthorID             int64     `json:"authorId"`
	IconBytes            []byte    `json:"iconBytes,omitempty"`
	IconType             string    `json:"iconType,omitempty"`
	ContentBytes         []byte    `json:"contentBytes,omitempty"`
}

// IsPaid returns true if the course requires payment.
func (c *Course) IsPaid() bool {
	return c.MonetizationStatusID == MonetizationPaid
}

// IsFree returns true if the course is free.
func (c *Course) IsFree() bool {
	return c.MonetizationStatusID == MonetizationFree
}

// HasIcon returns true if an icon image is attached.
func (c *Course) HasIcon() bool {
	return len(c.IconBytes) > 0
}

// Validate checks the record-level invariants.
func (c *Course) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(c.Title) == "" {
		errs.Add("title", "Title is required")
	}
	validateMonetization(errs, c.MonetizationStatusID, c.Price)
	return errs.Err()
}

// Clone returns a deep copy so callers cannot mutate held byte slices.
func (c Course) Clone() Course {
	c.IconBytes = cloneBytes(c.IconBytes)
	c.ContentBytes = cloneBytes(c.ContentBytes)
	return c
}

// NewCourse is a course creation request assembled by the wizard.
type NewCourse struct {
	Title                string
	Description          string
	CategoryID           int64
	LevelID              int64
	AgeID                int64
	MonetizationStatusID int64
	Price                int
	AuthorID             int64
	Icon                 []byte
	IconType             string
	Content              []byte
}

// Validate checks the creation request before it is handed to the backend.
func (n *NewCourse) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(n.Title) == "" {
		errs.Add("title", "Title is required")
	}
	if n.CategoryID <= 0 {
		errs.Add("category", "Category is required")
	}
	if n.LevelID <= 0 {
		errs.Add("level", "Level is required")
	}
	if n.AgeID <= 0 {
		errs.Add("age", "Age restriction is required")
	}
	validateMonetization(errs, n.MonetizationStatusID, n.Price)
	return errs.Err()
}

// CoursePatch holds the fields to merge onto an existing course.
// Nil fields are left unchanged.
type CoursePatch struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	Category             *string `json:"category,omitempty"`
	LevelKnowledge       *string `json:"levelKnowledge,omitempty"`
	AgePeople            *string `json:"agePeople,omitempty"`
	MonetizationStatusID *int64  `json:"monetizationStatusId,omitempty"`
	Price                *int    `json:"price,omitempty"`
	IconBytes            *[]byte `json:"iconBytes,omitempty"`
	IconType             *string `json:"iconType,omitempty"`
	ContentBytes         *[]byte `json:"contentBytes,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p CoursePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.LevelKnowledge == nil && p.AgePeople == nil && p.MonetizationStatusID == nil &&
		p.Price == nil && p.IconBytes == nil && p.IconType == nil && p.ContentBytes == nil
}

// Apply returns c with the patch shallow-merged onto it. ID, AuthorID and
// CreatedAt are never changed.
func (p CoursePatch) Apply(c Course) Course {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.LevelKnowledge != nil {
		c.LevelKnowledge = *p.LevelKnowledge
	}
	if p.AgePeople != nil {
		c.AgePeople = *p.AgePeople
	}
	if p.MonetizationStatusID != nil {
		c.MonetizationStatusID = *p.MonetizationStatusID
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.IconBytes != nil {
		c.IconBytes = cloneBytes(*p.IconBytes)
	}
	if p.IconType != nil {
		c.IconType = *p.IconType
	}
	if p.ContentBytes != nil {
		c.ContentBytes = cloneBytes(*p.ContentBytes)
	}
	return c
}

// ValidatePrice checks the monetization/price invariant on its own.
func ValidatePrice(monetizationStatusID int64, price int) error {
	errs := ValidationErrors{}
	validateMonetization(errs, monetizationStatusID, price)
	return errs.Err()
}

func validateMonetization(errs ValidationErrors, status int64, price int) {
	switch status {
	case MonetizationPaid:
		if price < MinPaidPrice || price > MaxPaidPrice {
			errs.Add("price", fmt.Sprintf("Price must be between %d and %d", MinPaidPrice, MaxPaidPrice))
		}
	case MonetizationFree:
		if price != 0 {
			errs.Add("price", "Free courses must have price 0")
		}
	default:
		errs.Add("monetizationStatusId", "Monetization type is required")
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

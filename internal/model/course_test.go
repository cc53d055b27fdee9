// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		name    string
		status  int64
		price   int
		wantErr bool
	}{
		{"paid lower bound", MonetizationPaid, 1000, false},
		{"paid upper bound", MonetizationPaid, 20000, false},
		{"paid below range", MonetizationPaid, 999, true},
		{"paid above range", MonetizationPaid, 20001, true},
		{"paid zero", MonetizationPaid, 0, true},
		{"free zero", MonetizationFree, 0, false},
		{"free with price", MonetizationFree, 1500, true},
		{"unset status", 0, 0, true},
		{"unknown status", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrice(tt.status, tt.price)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePrice(%d, %d) error = %v, wantErr %v", tt.status, tt.price, err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestCourseValidate(t *testing.T) {
	c := Course{Title: "  ", MonetizationStatusID: MonetizationPaid, Price: 10}
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for blank title and bad price")
	}
	fields := FieldErrors(err)
	if _, ok := fields["title"]; !ok {
		t.Error("missing title error")
	}
	if _, ok := fields["price"]; !ok {
		t.Error("missing price error")
	}

	c = Course{Title: "Go", MonetizationStatusID: MonetizationFree}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestNewCourseValidate(t *testing.T) {
	n := NewCourse{Title: "Intro", CategoryID: 1, LevelID: 1, AgeID: 1, MonetizationStatusID: MonetizationFree}
	if err := n.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	n.CategoryID = 0
	if fields := FieldErrors(n.Validate()); fields["category"] == "" {
		t.Errorf("expected category error, got %v", fields)
	}
}

func TestCoursePatchApply(t *testing.T) {
	orig := Course{
		ID:                   7,
		Title:                "Old",
		Description:          "keep",
		Category:             "Дизайн",
		MonetizationStatusID: MonetizationFree,
		AuthorID:             3,
		ContentBytes:         []byte("# old"),
	}

	title := "New"
	content := []byte("# new")
	merged := CoursePatch{Title: &title, ContentBytes: &content}.Apply(orig)

	if merged.Title != "New" {
		t.Errorf("Title = %q, want New", merged.Title)
	}
	if merged.Description != "keep" || merged.Category != "Дизайн" {
		t.Errorf("untouched fields changed: %+v", merged)
	}
	if merged.ID != 7 || merged.AuthorID != 3 {
		t.Errorf("identity changed: id=%d author=%d", merged.ID, merged.AuthorID)
	}
	if string(merged.ContentBytes) != "# new" {
		t.Errorf("ContentBytes = %q", merged.ContentBytes)
	}

	content[0] = 'X'
	if string(merged.ContentBytes) != "# new" {
		t.Error("patch bytes aliased into merged course")
	}
	if string(orig.ContentBytes) != "# old" {
		t.Error("original course mutated")
	}
}

func TestCoursePatchIsEmpty(t *testing.T) {
	if !(CoursePatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	price := 0
	if (CoursePatch{Price: &price}).IsEmpty() {
		t.Error("patch with price should not be empty")
	}
}

func TestNetworkErrorIs(t *testing.T) {
	err := error(&NetworkError{StatusCode: 401})
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("401 should match ErrUnauthorized")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("401 should not match ErrNotFound")
	}

	wrapped := errors.Join(errors.New("ctx"), &NetworkError{StatusCode: 404, Message: "gone"})
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if !IsNetwork(wrapped) {
		t.Error("IsNetwork should see through wrapping")
	}
}

func TestErrNoSessionIsNotFound(t *testing.T) {
	if !errors.Is(ErrNoSession, ErrNotFound) {
		t.Error("ErrNoSession should match ErrNotFound")
	}
}

func TestValidationErrorsKeepsFirst(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("title", "first")
	errs.Add("title", "second")
	if errs["title"] != "first" {
		t.Errorf("title = %q, want first", errs["title"])
	}
	if (ValidationErrors{}).Err() != nil {
		t.Error("empty ValidationErrors should yield nil")
	}
}

func TestParsePriceTier(t *testing.T) {
	tests := []struct {
		in   string
		want PriceTier
		ok   bool
	}{
		{"", PriceTierAny, true},
		{"free", PriceTierFree, true},
		{" PAID ", PriceTierPaid, true},
		{"cheap", PriceTierAny, false},
	}
	for _, tt := range tests {
		got, ok := ParsePriceTier(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePriceTier(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if !PriceTierFree.Matches(MonetizationFree) || PriceTierFree.Matches(MonetizationPaid) {
		t.Error("free tier matching wrong")
	}
	if !PriceTierAny.Matches(MonetizationPaid) {
		t.Error("any tier should match everything")
	}
}

func TestUserIsAuthorOf(t *testing.T) {
	u := &User{ID: 5}
	if !u.IsAuthorOf(&Course{AuthorID: 5}) {
		t.Error("expected author match")
	}
	var nobody *User
	if nobody.IsAuthorOf(&Course{AuthorID: 0}) {
		t.Error("nil user is never an author")
	}
}

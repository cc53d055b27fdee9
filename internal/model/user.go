// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain records shared by the stores, the wizard
// and the transport boundary: users, courses, catalog entries, filters and
// the error taxonomy.
package model

// RoleUser is the role assigned to every user created by login or registration.
const RoleUser = 1

// User is the authenticated account held as the current session.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Role  int    `json:"role"`
}

// IsAuthorOf returns true if the user created the course.
func (u *User) IsAuthorOf(c *Course) bool {
	return u != nil && c != nil && c.AuthorID == u.ID
}

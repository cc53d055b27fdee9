// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import "fmt"

// Credentials maps a login to its argon2id password hash.
type Credentials map[string]string

// Set hashes password and records it for login.
func (c Credentials) Set(login, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password for %s: %w", login, err)
	}
	c[login] = hash
	return nil
}

// Verify reports whether password matches the recorded hash. known is false
// when no hash is recorded for login.
func (c Credentials) Verify(login, password string) (ok, known bool, err error) {
	hash, found := c[login]
	if !found {
		return false, false, nil
	}
	ok, err = CheckPassword(password, hash)
	return ok, true, err
}

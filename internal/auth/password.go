// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth validates credential forms and hashes passwords with argon2id
// for the mock backend's credential book.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// hashParams are the argon2id cost settings recorded in every hash.
type hashParams struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
}

// currentParams follow the OWASP minimum for argon2id.
var currentParams = hashParams{Memory: 19 * 1024, Time: 2, Threads: 1}

const (
	saltLen = 16
	keyLen  = 32
)

var (
	errHashFormat = errors.New("auth: malformed password hash")
	b64           = base64.RawStdEncoding
)

func (p hashParams) derive(password string, salt []byte, n uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, n)
}

// encode renders the PHC string $argon2id$v=19$m=...,t=...,p=...$salt$key.
func (p hashParams) encode(salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads, b64.EncodeToString(salt), b64.EncodeToString(key))
}

type parsedHash struct {
	params hashParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (parsedHash, error) {
	var ph parsedHash
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return ph, errHashFormat
	}
	if fields[1] != "argon2id" {
		return ph, fmt.Errorf("auth: unsupported hash algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ph, fmt.Errorf("%w: version %q", errHashFormat, fields[2])
	}
	p := &ph.params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return ph, fmt.Errorf("%w: parameters: %v", errHashFormat, err)
	}

	var err error
	if ph.salt, err = b64.DecodeString(fields[4]); err != nil {
		return ph, fmt.Errorf("%w: salt: %v", errHashFormat, err)
	}
	if ph.key, err = b64.DecodeString(fields[5]); err != nil || len(ph.key) == 0 {
		return ph, fmt.Errorf("%w: key", errHashFormat)
	}
	return ph, nil
}

func hashWith(p hashParams, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: reading salt: %w", err)
	}
	return p.encode(salt, p.derive(password, salt, keyLen)), nil
}

// HashPassword hashes password with a fresh salt and the current parameters.
func HashPassword(password string) (string, error) {
	return hashWith(currentParams, password)
}

// CheckPassword compares password with encoded in constant time, using the
// parameters stored in the hash.
func CheckPassword(password, encoded string) (bool, error) {
	ph, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := ph.params.derive(password, ph.salt, uint32(len(ph.key)))
	return subtle.ConstantTimeCompare(got, ph.key) == 1, nil
}

// NeedsRehash reports whether encoded is unreadable or was produced with
// parameters other than the current ones.
func NeedsRehash(encoded string) bool {
	ph, err := parseHash(encoded)
	return err != nil || ph.params != currentParams
}

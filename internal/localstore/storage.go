// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package localstore provides the durable key/value storage that holds the
// current session user, the mock course collection and the bearer token.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys
const (
	KeyUser        = "knowledge_plus_user"
	KeyCourses     = "knowledge_plus_courses"
	KeyCredentials = "knowledge_plus_credentials"
	KeyToken       = "knowledge_plus_token"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("localstore: key not found")

// Storage is a durable key/value store. Writers are not coordinated:
// concurrent writes to one key resolve as last writer wins.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Storage, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

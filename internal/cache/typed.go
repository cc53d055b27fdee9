// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// JSON caches values of type T as JSON documents.
type JSON[T any] struct {
	backend Cache
	ttl     time.Duration
}

// NewJSON wraps backend; entries are written with ttl.
func NewJSON[T any](backend Cache, ttl time.Duration) *JSON[T] {
	return &JSON[T]{backend: backend, ttl: ttl}
}

// Load reports false on a miss, a backend failure or an undecodable entry.
func (j *JSON[T]) Load(ctx context.Context, key string) (T, bool) {
	var v T
	raw, err := j.backend.Get(ctx, key)
	if err != nil || json.Unmarshal(raw, &v) != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func (j *JSON[T]) Store(ctx context.Context, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return j.backend.Set(ctx, key, raw, j.ttl)
}

// Remember returns the entry for key, calling build and storing its result
// on a miss. Storage failures are ignored; build errors are returned.
func (j *JSON[T]) Remember(ctx context.Context, key string, build func() (T, error)) (T, error) {
	if v, ok := j.Load(ctx, key); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	_ = j.Store(ctx, key, v)
	return v, nil
}

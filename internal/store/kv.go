// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/knowledge-plus/internal/localstore"
)

const (
	getValue    = `SELECT value FROM local_storage WHERE key = ?`
	upsertValue = `
INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`
	deleteValue = `DELETE FROM local_storage WHERE key = ?`
)

// KV is a localstore.Storage over the local_storage table.
type KV struct {
	db    *sql.DB
	owned bool
}

var _ localstore.Storage = (*KV)(nil)

// NewKV wraps an already migrated database. Close leaves db open.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// OpenKV opens and migrates the database at path. Close closes it.
func OpenKV(path string) (*KV, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &KV{db: db, owned: true}, nil
}

// DB returns the underlying database.
func (s *KV) DB() *sql.DB {
	return s.db
}

// Get returns the value stored under key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, getValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, localstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Set writes value under key.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, upsertValue, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close closes the database if OpenKV opened it.
func (s *KV) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// DefaultTokenLifetime is how long an issued bearer token stays valid.
const DefaultTokenLifetime = 24 * time.Hour

// Session data keys
const (
	keyUserID = "user_id"
	keyLogin  = "login"
	keyRole   = "role"
)

// Tokens issues and resolves the bearer tokens of the REST façade. A token
// is an scs session token whose data lives in the sessions table.
type Tokens struct {
	sm *scs.SessionManager
}

// NewTokens creates a token issuer backed by SQLite.
func NewTokens(db *sql.DB, lifetime time.Duration) *Tokens {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	sm.Lifetime = lifetime

	return &Tokens{sm: sm}
}

// Manager exposes the underlying session manager.
func (t *Tokens) Manager() *scs.SessionManager {
	return t.sm
}

// Issue starts a session for user and returns its token.
func (t *Tokens) Issue(ctx context.Context, user model.User) (string, time.Time, error) {
	ctx, err := t.sm.Load(ctx, "")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("starting session: %w", err)
	}
	t.sm.Put(ctx, keyUserID, user.ID)
	t.sm.Put(ctx, keyLogin, user.Login)
	t.sm.Put(ctx, keyRole, user.Role)

	token, expiry, err := t.sm.Commit(ctx)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("committing session: %w", err)
	}
	return token, expiry, nil
}

// Resolve loads the session for token. The returned context carries the
// session and must be passed to Revoke. The user is nil when the token is
// unknown or expired.
func (t *Tokens) Resolve(ctx context.Context, token string) (context.Context, *model.User, error) {
	ctx, err := t.sm.Load(ctx, token)
	if err != nil {
		return ctx, nil, fmt.Errorf("loading session: %w", err)
	}
	if !t.sm.Exists(ctx, keyUserID) {
		return ctx, nil, nil
	}
	return ctx, &model.User{
		ID:    t.sm.GetInt64(ctx, keyUserID),
		Login: t.sm.GetString(ctx, keyLogin),
		Role:  t.sm.GetInt(ctx, keyRole),
	}, nil
}

// Revoke destroys the session loaded into ctx by Resolve.
func (t *Tokens) Revoke(ctx context.Context) error {
	if err := t.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

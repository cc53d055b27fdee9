// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the HTTP middleware of the REST façade:
// bearer authentication, login protection, rate limiting, CORS and
// response hardening.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the *model.User resolved from the bearer token.
const ContextKeyUser ContextKey = "user"

// Messages returned for rejected bearer tokens.
const (
	msgMissingToken = "Пользователь не авторизован"
	msgInvalidToken = "Сессия истекла, войдите снова"
)

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// resolve loads the session for the request token. The returned request
// carries the session context and, when the token is valid, the user.
func resolve(tokens *session.Tokens, r *http.Request, logger *slog.Logger) (*http.Request, *model.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return r, nil, false
	}

	ctx, user, err := tokens.Resolve(r.Context(), token)
	if err != nil {
		logger.Error("failed to resolve bearer token", "error", err)
		return r, nil, true
	}
	if user == nil {
		return r, nil, true
	}
	ctx = context.WithValue(ctx, ContextKeyUser, user)
	return r.WithContext(ctx), user, true
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user in the request context.
func RequireAuth(tokens *session.Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, user, present := resolve(tokens, r, logger)
			switch {
			case !present:
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, msgMissingToken, nil)
				return
			case user == nil:
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, msgInvalidToken, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth adds the token's user to the context when a valid bearer
// token is sent and passes every request through.
func OptionalAuth(tokens *session.Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, _, _ = resolve(tokens, r, logger)
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the authenticated user from the request context, or nil.
func GetUser(r *http.Request) *model.User {
	return UserFromContext(r.Context())
}

// UserFromContext returns the user stored by RequireAuth or OptionalAuth.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(ContextKeyUser).(*model.User)
	return user
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/knowledge-plus/internal/auth"
	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/middleware"
	"github.com/olegiv/knowledge-plus/internal/model"
)

// AuthResponse is the body of a successful login or registration.
type AuthResponse struct {
	backend.AuthResult
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form auth.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		WriteBadRequest(w, "Некорректное тело запроса")
		return
	}
	if err := form.Validate(); err != nil {
		WriteValidationError(w, model.FieldErrors(err))
		return
	}

	if locked, remaining := h.protection.IsLocked(form.Login); locked {
		middleware.WriteLockout(w, remaining)
		return
	}

	user, err := h.backend.Login(r.Context(), form.Login, form.Password)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			if locked, d := h.protection.RecordFailedAttempt(form.Login); locked {
				middleware.WriteLockout(w, d)
				return
			}
		}
		h.writeBackendError(w, r, err, "Не удалось выполнить вход")
		return
	}
	h.protection.RecordSuccessfulLogin(form.Login)

	h.issueToken(w, r, user, http.StatusOK)
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var form auth.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		WriteBadRequest(w, "Некорректное тело запроса")
		return
	}
	if err := form.Validate(); err != nil {
		WriteValidationError(w, model.FieldErrors(err))
		return
	}

	user, err := h.backend.Register(r.Context(), form.Login, form.Password)
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось зарегистрироваться")
		return
	}
	h.issueToken(w, r, user, http.StatusCreated)
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, expiry, err := h.tokens.Issue(r.Context(), *user)
	if err != nil {
		h.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		WriteInternalError(w, "Не удалось создать сессию")
		return
	}
	h.logger.Info("session issued", "user_id", user.ID, "login", user.Login)

	WriteJSON(w, status, Response{Data: AuthResponse{
		AuthResult: backend.AuthResult{User: *user, Token: token},
		ExpiresAt:  expiry,
	}})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if err := h.backend.Logout(r.Context()); err != nil {
		h.logger.Warn("backend logout failed", "user_id", user.ID, "error", err)
	}
	if err := h.tokens.Revoke(r.Context()); err != nil {
		h.logger.Error("failed to revoke token", "user_id", user.ID, "error", err)
		WriteInternalError(w, "Не удалось завершить сессию")
		return
	}
	h.logger.Info("session revoked", "user_id", user.ID)
	WriteSuccess(w, struct{}{}, nil)
}

// ChangePassword handles PUT /api/auth/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var form auth.ChangePasswordForm
	if err := decodeJSON(r, &form); err != nil {
		WriteBadRequest(w, "Некорректное тело запроса")
		return
	}
	if err := form.Validate(); err != nil {
		WriteValidationError(w, model.FieldErrors(err))
		return
	}

	user := middleware.GetUser(r)
	if err := h.backend.ChangePassword(r.Context(), user, form.Password); err != nil {
		h.writeBackendError(w, r, err, "Не удалось сменить пароль")
		return
	}
	WriteSuccess(w, struct{}{}, nil)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, middleware.GetUser(r), nil)
}

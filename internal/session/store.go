// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session holds the current user of a client and issues the bearer
// tokens of the REST façade.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/olegiv/knowledge-plus/internal/auth"
	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/model"
)

// Failure messages recorded in State.Error.
const (
	MsgLoginFailed          = "Login failed. Please try again."
	MsgRegistrationFailed   = "Registration failed. Please try again."
	MsgChangePasswordFailed = "Failed to change password. Please try again."
	MsgNotAuthenticated     = "Пользователь не авторизован"
	MsgSessionExpired       = "Сессия истекла, войдите снова"
)

// State is a snapshot of the store.
type State struct {
	User    *model.User
	Loading bool
	Error   string
}

// Observer is called after the current user changes. user is nil after
// logout.
type Observer func(user *model.User)

// Store owns the current user. The user is persisted to local storage
// under localstore.KeyUser. Safe for concurrent use.
type Store struct {
	backend backend.Backend
	storage localstore.Storage
	logger  *slog.Logger

	mu        sync.RWMutex
	user      *model.User
	inFlight  int
	errMsg    string
	observers []Observer
}

// New creates an empty, unauthenticated Store. Call Restore to pick up a
// persisted session.
func New(b backend.Backend, storage localstore.Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: b, storage: storage, logger: logger}
}

// Subscribe registers an observer of session changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{User: copyUser(s.user), Loading: s.inFlight > 0, Error: s.errMsg}
}

// Current returns the current user, or nil.
func (s *Store) Current() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// ClearError resets the recorded error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Restore loads the persisted user. A record that cannot be decoded is
// removed and the store stays unauthenticated.
func (s *Store) Restore(ctx context.Context) error {
	var user model.User
	err := localstore.GetJSON(ctx, s.storage, localstore.KeyUser, &user)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		return nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("removing unreadable session record", "error", err)
		if delErr := s.storage.Delete(ctx, localstore.KeyUser); delErr != nil {
			return delErr
		}
		return nil
	}

	s.setUser(&user)
	s.logger.Debug("session restored", "user_id", user.ID)
	return nil
}

// Login signs in and makes the returned user current. On failure the
// previous user is kept.
func (s *Store) Login(ctx context.Context, login, password string) (*model.User, error) {
	form := auth.LoginForm{Login: login, Password: password}
	return s.authenticate(ctx, form.Validate, MsgLoginFailed, func() (*model.User, error) {
		return s.backend.Login(ctx, login, password)
	})
}

// Register creates an account and makes it current. Logins are not checked
// for uniqueness.
func (s *Store) Register(ctx context.Context, login, password string) (*model.User, error) {
	form := auth.LoginForm{Login: login, Password: password}
	return s.authenticate(ctx, form.Validate, MsgRegistrationFailed, func() (*model.User, error) {
		return s.backend.Register(ctx, login, password)
	})
}

func (s *Store) authenticate(ctx context.Context, validate func() error, fallback string, call func() (*model.User, error)) (*model.User, error) {
	if err := validate(); err != nil {
		s.fail(err, fallback)
		return nil, err
	}

	s.begin()
	defer s.end()

	user, err := call()
	if err != nil {
		s.fail(err, fallback)
		s.logger.Warn("authentication failed", "error", err)
		return nil, err
	}
	if err := localstore.SetJSON(ctx, s.storage, localstore.KeyUser, user); err != nil {
		s.fail(err, fallback)
		return nil, err
	}

	s.setUser(user)
	return copyUser(user), nil
}

// Logout clears the current session. The backend is told on a best-effort
// basis.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed", "error", err)
	}
	if err := s.storage.Delete(ctx, localstore.KeyUser); err != nil {
		return err
	}
	s.setUser(nil)
	return nil
}

// Expire drops the current user without telling the backend. It is called
// after the backend rejected the session token.
func (s *Store) Expire(ctx context.Context) error {
	if err := s.storage.Delete(ctx, localstore.KeyUser); err != nil {
		return err
	}
	s.mu.Lock()
	expired := s.user != nil
	if expired {
		s.errMsg = MsgSessionExpired
	}
	s.mu.Unlock()

	if expired {
		s.logger.Info("session expired")
		s.setUser(nil)
	}
	return nil
}

// ChangePassword changes the current user's password. Without a current
// user it fails with model.ErrNoSession. A rejected session expires the
// store.
func (s *Store) ChangePassword(ctx context.Context, newPassword string) error {
	user := s.Current()
	if user == nil {
		s.fail(model.ErrNoSession, MsgNotAuthenticated)
		return model.ErrNoSession
	}

	form := auth.ChangePasswordForm{Password: newPassword, ConfirmPassword: newPassword}
	if err := form.Validate(); err != nil {
		s.fail(err, MsgChangePasswordFailed)
		return err
	}

	s.begin()
	defer s.end()

	if err := s.backend.ChangePassword(ctx, user, newPassword); err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			if expErr := s.Expire(ctx); expErr != nil {
				s.logger.Warn("expiring session", "error", expErr)
			}
		}
		s.fail(err, MsgChangePasswordFailed)
		return err
	}
	return nil
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inFlight++
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *Store) fail(err error, fallback string) {
	s.mu.Lock()
	s.errMsg = model.UserMessage(err, fallback)
	s.mu.Unlock()
}

func (s *Store) setUser(user *model.User) {
	s.mu.Lock()
	s.user = copyUser(user)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(copyUser(user))
	}
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var status HealthStatus
	decode(t, rr, &status)
	if status.Status != "ok" || status.Checks["database"] != "ok" {
		t.Errorf("health = %+v", status)
	}
	if status.Cache == nil || status.Cache.Backend != "memory" {
		t.Errorf("cache stats = %+v", status.Cache)
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantField  string
	}{
		{
			name:       "valid",
			body:       map[string]any{"login": "alice", "password": "secret123", "confirmPassword": "secret123", "acceptTerms": true},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "short password",
			body:       map[string]any{"login": "bob", "password": "abc", "confirmPassword": "abc", "acceptTerms": true},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "password",
		},
		{
			name:       "mismatched confirmation",
			body:       map[string]any{"login": "bob", "password": "secret123", "confirmPassword": "secret124", "acceptTerms": true},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "confirmPassword",
		},
		{
			name:       "terms not accepted",
			body:       map[string]any{"login": "bob", "password": "secret123", "confirmPassword": "secret123"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "acceptTerms",
		},
		{
			name:       "invalid login",
			body:       map[string]any{"login": "bad login!", "password": "secret123", "confirmPassword": "secret123", "acceptTerms": true},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "login",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantField == "" {
				var resp struct {
					Data AuthResponse `json:"data"`
				}
				decode(t, rr, &resp)
				if resp.Data.Token == "" || resp.Data.User.Login != "alice" || resp.Data.ExpiresAt.IsZero() {
					t.Errorf("auth response = %+v", resp.Data)
				}
				return
			}
			detail := decodeError(t, rr)
			if detail.Code != "validation_error" || detail.Details[tt.wantField] == "" {
				t.Errorf("error = %+v, want field %s", detail, tt.wantField)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "alice")

	rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice", "password": "secret123"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice", "password": "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rr.Code)
	}
	if detail := decodeError(t, rr); detail.Message != "Неверный логин или пароль" {
		t.Errorf("message = %q", detail.Message)
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing password status = %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice", "password": "x", "extra": "y"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d", rr.Code)
	}

	// Unknown logins are accepted by the demo backend.
	rr = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "guest", "password": "anything"})
	if rr.Code != http.StatusOK {
		t.Errorf("unknown login status = %d", rr.Code)
	}
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "alice")

	bad := map[string]string{"login": "alice", "password": "wrong"}
	for i := 1; i < 3; i++ {
		if rr := s.do(t, http.MethodPost, "/api/auth/login", "", bad); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, rr.Code)
		}
	}

	rr := s.do(t, http.MethodPost, "/api/auth/login", "", bad)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	good := map[string]string{"login": "alice", "password": "secret123"}
	if rr := s.do(t, http.MethodPost, "/api/auth/login", "", good); rr.Code != http.StatusTooManyRequests {
		t.Errorf("locked login accepted: status %d", rr.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token, user := s.login(t, "alice")

	rr := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"login":"alice"`) {
		t.Fatalf("me = %d %s", rr.Code, rr.Body.String())
	}
	if user.ID == 0 {
		t.Error("expected a user id")
	}

	if rr := s.do(t, http.MethodPost, "/api/auth/logout", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/api/auth/me", token, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rr.Code)
	}
	if rr := s.do(t, http.MethodPost, "/api/auth/logout", "", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("logout without token status = %d, want 401", rr.Code)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "alice")

	rr := s.do(t, http.MethodPut, "/api/auth/password", token, map[string]string{"password": "abc", "confirmPassword": "abc"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("short password status = %d", rr.Code)
	}

	rr = s.do(t, http.MethodPut, "/api/auth/password", token, map[string]string{"password": "newsecret", "confirmPassword": "newsecret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("change status = %d: %s", rr.Code, rr.Body.String())
	}

	if rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice", "password": "secret123"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("old password status = %d, want 401", rr.Code)
	}
	if rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "alice", "password": "newsecret"}); rr.Code != http.StatusOK {
		t.Errorf("new password status = %d, want 200", rr.Code)
	}

	if rr := s.do(t, http.MethodPut, "/api/auth/password", "", map[string]string{"password": "x"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous change status = %d, want 401", rr.Code)
	}
}

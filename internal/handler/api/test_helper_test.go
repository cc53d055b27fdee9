// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/cache"
	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/middleware"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/session"
	"github.com/olegiv/knowledge-plus/internal/testutil"
)

type testServer struct {
	handler http.Handler
	h       *Handler
	cache   *cache.MemoryCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.TestDB(t)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })

	h := NewHandler(Config{
		Backend: backend.NewMock(backend.MockConfig{
			Storage:         localstore.NewMemory(),
			VerifyPasswords: true,
			Logger:          testutil.TestLogger(),
		}),
		Tokens: session.NewTokens(db, time.Hour),
		Cache:  mem,
		DB:     db,
		Protection: middleware.NewLoginProtection(middleware.LoginProtectionConfig{
			IPRateLimit:       100,
			IPBurst:           100,
			MaxFailedAttempts: 3,
			LockoutDuration:   time.Minute,
		}),
		IsDevelopment: true,
	})
	return &testServer{handler: h.Routes(), h: h, cache: mem}
}

// do sends a request with an optional JSON body and bearer token.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// login registers login and returns the issued token and user.
func (s *testServer) login(t *testing.T, login string) (string, model.User) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"login":           login,
		"password":        "secret123",
		"confirmPassword": "secret123",
		"acceptTerms":     true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", login, rr.Code, rr.Body.String())
	}
	var resp struct {
		Data AuthResponse `json:"data"`
	}
	decode(t, rr, &resp)
	return resp.Data.Token, resp.Data.User
}

// createCourse posts a multipart creation request for a free course.
func (s *testServer) createCourse(t *testing.T, token string, nc model.NewCourse) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType, err := backend.EncodeCourseForm(nc).Encode()
	if err != nil {
		t.Fatalf("encoding form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/courses", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rr.Body.String(), err)
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	decode(t, rr, &resp)
	return resp.Error
}

func freeCourse(title string) model.NewCourse {
	return model.NewCourse{
		Title:                title,
		Description:          "Описание",
		CategoryID:           1,
		LevelID:              1,
		AgeID:                2,
		MonetizationStatusID: model.MonetizationFree,
		Content:              []byte("# " + title + "\n\n<script>alert(1)</script>\n\nТекст курса."),
	}
}

func pngIcon(t *testing.T, w, h int) []byte {
	return testutil.PNG(t, w, h)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

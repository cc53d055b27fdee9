// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/version"
)

// testEnv points the CLI at a throwaway SQLite store with no latency.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KP_STORAGE_DRIVER", "sqlite")
	t.Setenv("KP_DB_PATH", filepath.Join(dir, "kplus.db"))
	t.Setenv("KP_BACKEND", "mock")
	t.Setenv("KP_LATENCY_SCALE", "0")
	t.Setenv("KP_LOG_LEVEL", "error")
	return dir
}

// run executes one kplus invocation and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(version.Info{Version: "v0.0.0-test"})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "kplus %s", strings.Join(args, " "))
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "kplus v0.0.0-test")

	out = mustRun(t, "version", "--json")
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "v0.0.0-test", info.Version)
}

func TestSessionLifecycle(t *testing.T) {
	testEnv(t)

	_, err := run(t, "whoami")
	assert.ErrorIs(t, err, model.ErrNoSession)

	_, err = run(t, "register", "alice", "-p", "secret123")
	require.Error(t, err)
	assert.Contains(t, model.FieldErrors(err), "acceptTerms")

	out := mustRun(t, "register", "alice", "-p", "secret123", "--accept-terms")
	assert.Contains(t, out, "alice")

	// The session is persisted between invocations.
	assert.Contains(t, mustRun(t, "whoami"), "alice")

	_, err = run(t, "passwd", "-p", "abc")
	assert.True(t, model.IsValidation(err), "short password: %v", err)
	mustRun(t, "passwd", "-p", "newsecret")

	mustRun(t, "logout")
	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, model.ErrNoSession)
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	testEnv(t)

	root := newRootCmd(version.Info{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("secret123\n"))
	root.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "login", "bob"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "bob")
}

func TestCatalogAndCourses(t *testing.T) {
	testEnv(t)

	out := mustRun(t, "catalog")
	assert.Contains(t, out, "Программирование")
	assert.Contains(t, out, "Бесплатный курс")

	out = mustRun(t, "courses", "--json", "--price", "paid")
	var paid []model.Course
	require.NoError(t, json.Unmarshal([]byte(out), &paid))
	require.Len(t, paid, 1)
	assert.True(t, paid[0].IsPaid())

	out = mustRun(t, "courses")
	assert.Contains(t, out, "НАЗВАНИЕ")

	_, err := run(t, "courses", "--category", "Кулинария")
	assert.True(t, model.IsValidation(err))

	_, err = run(t, "courses", "--price", "cheap")
	assert.Contains(t, model.FieldErrors(err), "price")
}

func TestCourseCreateShowUpdate(t *testing.T) {
	dir := testEnv(t)
	mustRun(t, "login", "carol", "-p", "secret123")

	content := writeFile(t, dir, "course.md", "# Основы Go\n\n<script>alert(1)</script>\n\nПервый урок.")

	_, err := run(t, "course", "create", "--content", content)
	require.Error(t, err, "missing title")

	_, err = run(t, "course", "create", "--title", "Go", "--content", content, "--access", "paid", "--price", "50")
	assert.Contains(t, model.FieldErrors(err), "price")

	out := mustRun(t, "course", "create", "--json",
		"--title", "Основы Go",
		"--description", "Вводный курс",
		"--content", content,
		"--access", "paid",
		"--price", "1500",
		"--category", "Программирование",
		"--level", "1",
		"--age", "16+",
	)
	var created map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	id := strconv.FormatInt(created["id"], 10)
	require.NotEqual(t, "0", id)

	out = mustRun(t, "course", "show", id)
	assert.Contains(t, out, "Основы Go")
	assert.Contains(t, out, "1500 ₽")
	assert.Contains(t, out, "16+")

	out = mustRun(t, "course", "show", id, "--html")
	assert.Contains(t, out, "<h1")
	assert.NotContains(t, out, "<script>")

	out = mustRun(t, "course", "update", id, "--json", "--title", "Go для всех", "--access", "free")
	var updated model.Course
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "Go для всех", updated.Title)
	assert.True(t, updated.IsFree())
	assert.Zero(t, updated.Price)

	_, err = run(t, "course", "update", id)
	assert.EqualError(t, err, "nothing to update")

	// Seeded courses belong to nobody.
	_, err = run(t, "course", "update", "1", "--title", "Чужой")
	assert.EqualError(t, err, msgAuthorOnly)

	_, err = run(t, "course", "show", "999")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestResolveEntry(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		kind    catalog.Kind
		raw     string
		wantID  int64
		wantErr bool
	}{
		{catalog.KindCategory, "2", 2, false},
		{catalog.KindCategory, "Дизайн", 2, false},
		{catalog.KindCategory, " Маркетинг ", 3, false},
		{catalog.KindAge, "18+", 4, false},
		{catalog.KindLevel, "99", 0, true},
		{catalog.KindLevel, "Эксперт", 0, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			e, err := resolveEntry(cat, tt.kind, tt.raw)
			if tt.wantErr {
				assert.True(t, model.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, e.ID)
		})
	}
}

func TestResolveAccess(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"paid", model.MonetizationPaid, false},
		{"FREE", model.MonetizationFree, false},
		{"2", model.MonetizationFree, false},
		{"Платный курс", model.MonetizationPaid, false},
		{"", 0, true},
		{"trial", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := resolveAccess(cat, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Ошибка входа", errorMessage(reported("Ошибка входа", model.ErrUnauthorized)))
	assert.Equal(t, "Название курса обязательно",
		errorMessage(model.NewValidationError("title", "Название курса обязательно")))
	assert.Equal(t, assert.AnError.Error(), errorMessage(assert.AnError))
	assert.Nil(t, reported("msg", nil))
}

func TestRejectedSessionAsksForLogin(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"id":3,"login":"alice","role":1},"token":"tok"}}`))
	})
	r.Get("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"Session expired"}}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	testEnv(t)
	t.Setenv("KP_BACKEND", "remote")
	t.Setenv("KP_API_URL", srv.URL)

	mustRun(t, "login", "alice", "-p", "secret123")
	assert.Contains(t, mustRun(t, "whoami"), "alice")

	_, err := run(t, "courses")
	require.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, msgSessionExpired, errorMessage(err))

	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, model.ErrNoSession)
}

func TestSessionExpiredOnlyWhenSessionEnded(t *testing.T) {
	rejected := &model.NetworkError{StatusCode: http.StatusUnauthorized, Message: "Неверный пароль"}
	tests := []struct {
		name      string
		signedIn  bool
		signedOut bool
		err       error
		want      string
	}{
		{"session ended", true, true, rejected, msgSessionExpired},
		{"wrong password keeps session", true, false, rejected, "Неверный пароль"},
		{"anonymous", false, true, rejected, "Неверный пароль"},
		{"other failure", true, true, model.ErrNotFound, model.ErrNotFound.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(sessionExpired(tt.signedIn, tt.signedOut, tt.err))
			assert.Equal(t, tt.want, got)
		})
	}
	assert.NoError(t, sessionExpired(true, true, nil))
}

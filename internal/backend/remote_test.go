// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/model"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErr(w http.ResponseWriter, status int, code, msg string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg, "details": details},
	})
}

func newTestRemote(t *testing.T, r chi.Router) (*Remote, localstore.Storage) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	storage := localstore.NewMemory()
	remote, err := NewRemote(RemoteConfig{BaseURL: srv.URL, Storage: storage})
	require.NoError(t, err)
	return remote, storage
}

func TestRemoteLoginStoresToken(t *testing.T) {
	var gotAuth atomic.Value
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, http.StatusOK, AuthResult{
			User:  model.User{ID: 42, Login: body["login"], Role: model.RoleUser},
			Token: "tok-123",
		})
	})
	r.Get("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, []model.Course{})
	})

	remote, storage := newTestRemote(t, r)
	ctx := context.Background()

	user, err := remote.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Login)

	token, err := storage.Get(ctx, localstore.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", string(token))

	courses, err := remote.ListCourses(ctx, model.CourseFilter{})
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Equal(t, "Bearer tok-123", gotAuth.Load())
}

func TestRemoteUnauthorizedClearsToken(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/auth/password", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "Session expired", nil)
	})

	remote, storage := newTestRemote(t, r)
	var rejected atomic.Int32
	remote.OnUnauthorized(func(context.Context) { rejected.Add(1) })
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, localstore.KeyToken, []byte("stale")))

	err := remote.ChangePassword(ctx, &model.User{ID: 1, Login: "a"}, "secret1")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.True(t, model.IsNetwork(err))
	assert.Contains(t, err.Error(), "Session expired")
	assert.EqualValues(t, 1, rejected.Load())

	_, err = storage.Get(ctx, localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestRemoteWrongCredentialsKeepToken(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "Неверный логин или пароль", nil)
	})

	remote, storage := newTestRemote(t, r)
	var rejected atomic.Int32
	remote.OnUnauthorized(func(context.Context) { rejected.Add(1) })
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, localstore.KeyToken, []byte("current")))

	_, err := remote.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Zero(t, rejected.Load())

	token, err := storage.Get(ctx, localstore.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "current", string(token))
}

func TestRemoteErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "not_found", "Course not found", nil)
	})
	r.Put("/api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed",
			map[string]string{"price": "out of range"})
	})

	remote, _ := newTestRemote(t, r)
	ctx := context.Background()

	_, err := remote.GetCourse(ctx, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)

	price := 5
	_, err = remote.UpdateCourse(ctx, 5, model.CoursePatch{Price: &price})
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, map[string]string{"price": "out of range"}, model.FieldErrors(err))
}

func TestRemoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	remote, err := NewRemote(RemoteConfig{BaseURL: url, Storage: localstore.NewMemory()})
	require.NoError(t, err)

	_, err = remote.GetCourse(context.Background(), 1)
	var ne *model.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 0, ne.StatusCode)
}

func TestRemoteRetriesReads(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeErr(w, http.StatusServiceUnavailable, "unavailable", "try later", nil)
			return
		}
		writeData(w, http.StatusOK, model.Course{ID: 9, Title: "ok"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	remote, err := NewRemote(RemoteConfig{BaseURL: srv.URL, Storage: localstore.NewMemory(), RetryCount: 2})
	require.NoError(t, err)

	c, err := remote.GetCourse(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteCreateCourseMultipart(t *testing.T) {
	var got model.NewCourse
	r := chi.NewRouter()
	r.Post("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		nc, err := DecodeCourseForm(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
			return
		}
		got = nc
		writeData(w, http.StatusCreated, model.Course{ID: 77, Title: nc.Title, Price: nc.Price})
	})

	remote, _ := newTestRemote(t, r)
	nc := model.NewCourse{
		Title:                "Go",
		Description:          "desc",
		CategoryID:           1,
		LevelID:              2,
		AgeID:                3,
		MonetizationStatusID: model.MonetizationPaid,
		Price:                1500,
		AuthorID:             11,
		Icon:                 []byte{0x89, 'P', 'N', 'G'},
		IconType:             model.MimeTypePNG,
		Content:              []byte("# Go"),
	}

	c, err := remote.CreateCourse(context.Background(), nc)
	require.NoError(t, err)
	assert.Equal(t, int64(77), c.ID)
	assert.Equal(t, nc, got)
}

func TestRemoteCreateCourseValidatesFirst(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	remote, _ := newTestRemote(t, r)
	_, err := remote.CreateCourse(context.Background(), model.NewCourse{Title: " "})
	assert.True(t, model.IsValidation(err))
	assert.Zero(t, calls.Load())
}

func TestRemoteLogoutForgetsToken(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "no session", nil)
	})

	remote, storage := newTestRemote(t, r)
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, localstore.KeyToken, []byte("t")))

	assert.NoError(t, remote.Logout(ctx))
	_, err := storage.Get(ctx, localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestNewRemoteValidatesURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://host", "/relative"} {
		_, err := NewRemote(RemoteConfig{BaseURL: raw, Storage: localstore.NewMemory()})
		assert.Error(t, err, raw)
	}
}

func TestFilterQueryRoundTrip(t *testing.T) {
	f := model.CourseFilter{Search: "дизайн", CategoryID: 2, LevelID: 1, AgeID: 4, Price: model.PriceTierPaid}
	got, err := ParseFilterQuery(FilterQuery(f))
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = ParseFilterQuery(map[string][]string{"category": {"x"}, "price": {"cheap"}})
	fields := model.FieldErrors(err)
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "price")
}

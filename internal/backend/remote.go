// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/model"
)

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// RemoteConfig configures a Remote backend.
type RemoteConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// Storage holds the bearer token under localstore.KeyToken.
	Storage localstore.Storage
	Logger  *slog.Logger
}

// Remote calls the REST façade. The bearer token is read from storage on
// every request and cleared when the server rejects it with 401.
type Remote struct {
	client         *resty.Client
	storage        localstore.Storage
	logger         *slog.Logger
	onUnauthorized func(ctx context.Context)
}

// NewRemote creates a Remote backend for an absolute http(s) base URL.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Storage == nil {
		return nil, errors.New("remote backend requires token storage")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Remote{storage: cfg.Storage, logger: cfg.Logger}
	r.client = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition).
		OnBeforeRequest(r.attachToken)
	return r, nil
}

// OnUnauthorized registers fn to run after the server rejects a bearer
// token. Failed login and registration attempts do not trigger it. Must be
// set before the first request.
func (r *Remote) OnUnauthorized(fn func(ctx context.Context)) {
	r.onUnauthorized = fn
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("base URL must be absolute, got: %s", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https, got: %s", u.Scheme)
	}
	return nil
}

// retryCondition retries idempotent reads on transport errors and
// transient server statuses.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func (r *Remote) attachToken(_ *resty.Client, req *resty.Request) error {
	token, err := r.storage.Get(req.Context(), localstore.KeyToken)
	switch {
	case err == nil && len(token) > 0:
		req.SetAuthToken(string(token))
	case err != nil && !errors.Is(err, localstore.ErrNotFound):
		r.logger.Warn("reading bearer token", "error", err)
	}
	return nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func doJSON[T any](ctx context.Context, r *Remote, method, path string, prepare func(*resty.Request)) (T, error) {
	var result envelope[T]
	var apiErr errorBody

	req := r.client.R().SetContext(ctx).SetResult(&result).SetError(&apiErr)
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		var zero T
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, &model.NetworkError{Message: "request failed", Err: err}
	}
	if resp.IsError() {
		var zero T
		return zero, r.responseError(ctx, path, resp, &apiErr)
	}

	r.logger.Debug("api request completed", "method", method, "path", path, "status", resp.StatusCode())
	return result.Data, nil
}

// credentialPaths answer 401 for wrong credentials, not for a rejected token.
var credentialPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

func (r *Remote) responseError(ctx context.Context, path string, resp *resty.Response, apiErr *errorBody) error {
	status := resp.StatusCode()
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		if credentialPaths[path] {
			break
		}
		if err := r.storage.Delete(ctx, localstore.KeyToken); err != nil {
			r.logger.Warn("clearing bearer token", "error", err)
		}
		r.logger.Warn("session token rejected, login required", "path", path)
		if r.onUnauthorized != nil {
			r.onUnauthorized(ctx)
		}
	case http.StatusUnprocessableEntity:
		if len(apiErr.Error.Details) > 0 {
			return model.ValidationErrors(apiErr.Error.Details)
		}
	}
	return &model.NetworkError{StatusCode: status, Message: msg}
}

func (r *Remote) authenticate(ctx context.Context, path string, body any) (*model.User, error) {
	res, err := doJSON[AuthResult](ctx, r, http.MethodPost, path, func(req *resty.Request) {
		req.SetBody(body)
	})
	if err != nil {
		return nil, err
	}
	if err := r.storage.Set(ctx, localstore.KeyToken, []byte(res.Token)); err != nil {
		return nil, fmt.Errorf("saving bearer token: %w", err)
	}
	user := res.User
	return &user, nil
}

// Login signs in and stores the issued bearer token.
func (r *Remote) Login(ctx context.Context, login, password string) (*model.User, error) {
	return r.authenticate(ctx, "/api/auth/login", map[string]string{
		"login":    login,
		"password": password,
	})
}

// Register creates an account and stores the issued bearer token. The
// caller has already collected the confirmation and terms acceptance.
func (r *Remote) Register(ctx context.Context, login, password string) (*model.User, error) {
	return r.authenticate(ctx, "/api/auth/register", map[string]any{
		"login":           login,
		"password":        password,
		"confirmPassword": password,
		"acceptTerms":     true,
	})
}

// Logout revokes the token on the server and always forgets it locally.
func (r *Remote) Logout(ctx context.Context) error {
	_, err := doJSON[struct{}](ctx, r, http.MethodPost, "/api/auth/logout", nil)
	if delErr := r.storage.Delete(ctx, localstore.KeyToken); delErr != nil {
		r.logger.Warn("clearing bearer token", "error", delErr)
	}
	if errors.Is(err, model.ErrUnauthorized) {
		return nil
	}
	return err
}

// ChangePassword updates the password of the token's user.
func (r *Remote) ChangePassword(ctx context.Context, user *model.User, newPassword string) error {
	if user == nil {
		return model.ErrNoSession
	}
	_, err := doJSON[struct{}](ctx, r, http.MethodPut, "/api/auth/password", func(req *resty.Request) {
		req.SetBody(map[string]string{
			"password":        newPassword,
			"confirmPassword": newPassword,
		})
	})
	return err
}

// ListCourses fetches the filtered course list.
func (r *Remote) ListCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	courses, err := doJSON[[]model.Course](ctx, r, http.MethodGet, "/api/courses", func(req *resty.Request) {
		req.SetQueryParamsFromValues(FilterQuery(filter))
	})
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// GetCourse fetches one course.
func (r *Remote) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	c, err := doJSON[model.Course](ctx, r, http.MethodGet, "/api/courses/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse sends nc as a multipart form.
func (r *Remote) CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error) {
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	form := EncodeCourseForm(nc)
	c, err := doJSON[model.Course](ctx, r, http.MethodPost, "/api/courses", func(req *resty.Request) {
		req.SetMultipartFormData(form.Fields)
		for _, f := range form.Files {
			req.SetMultipartField(f.Field, f.Name, f.ContentType, bytes.NewReader(f.Data))
		}
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCourse sends patch as JSON.
func (r *Remote) UpdateCourse(ctx context.Context, id int64, patch model.CoursePatch) (*model.Course, error) {
	c, err := doJSON[model.Course](ctx, r, http.MethodPut, "/api/courses/"+strconv.FormatInt(id, 10), func(req *resty.Request) {
		req.SetHeader("Content-Type", "application/json").SetBody(patch)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FilterQuery encodes a course filter as query parameters.
func FilterQuery(f model.CourseFilter) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID != 0 {
		q.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.LevelID != 0 {
		q.Set("level", strconv.FormatInt(f.LevelID, 10))
	}
	if f.AgeID != 0 {
		q.Set("age", strconv.FormatInt(f.AgeID, 10))
	}
	if f.Price != model.PriceTierAny {
		q.Set("price", string(f.Price))
	}
	return q
}

// ParseFilterQuery decodes query parameters produced by FilterQuery.
func ParseFilterQuery(q url.Values) (model.CourseFilter, error) {
	f := model.CourseFilter{Search: q.Get("search")}
	errs := model.ValidationErrors{}

	parse := func(name string) int64 {
		raw := q.Get(name)
		if raw == "" {
			return 0
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			errs.Add(name, "Некорректный идентификатор")
			return 0
		}
		return v
	}
	f.CategoryID = parse("category")
	f.LevelID = parse("level")
	f.AgeID = parse("age")

	tier, ok := model.ParsePriceTier(q.Get("price"))
	if !ok {
		errs.Add("price", "Допустимые значения: free, paid")
	}
	f.Price = tier
	return f, errs.Err()
}

var _ Backend = (*Remote)(nil)

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api serves a Backend over REST so that the remote transport has
// a peer: authentication with bearer tokens, the lookup catalog and the
// course catalog with creation and editing.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/cache"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/middleware"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/session"
	"github.com/olegiv/knowledge-plus/internal/version"
)

// Config holds the dependencies of the façade.
type Config struct {
	Backend    backend.Backend
	Catalog    *catalog.Catalog
	Tokens     *session.Tokens
	Cache      cache.Cache
	Protection *middleware.LoginProtection
	// RateLimiter throttles all /api requests per IP; nil disables it.
	RateLimiter *middleware.RateLimiter
	// DB is pinged by the health check; optional.
	DB      *sql.DB
	Logger  *slog.Logger
	Version version.Info
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
	// MaxUploadSize bounds a course creation request body.
	MaxUploadSize int64
	// ContentTTL is how long rendered course HTML stays cached.
	ContentTTL time.Duration
	// RequestTimeout bounds every request; zero disables the timeout.
	RequestTimeout time.Duration
	IsDevelopment  bool
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	backend    backend.Backend
	catalog    *catalog.Catalog
	tokens     *session.Tokens
	cache      cache.Cache
	content    *cache.JSON[ContentResponse]
	protection *middleware.LoginProtection
	db         *sql.DB
	logger     *slog.Logger
	version    version.Info
	cfg        Config
	startTime  time.Time
}

// NewHandler creates the façade. Backend and Tokens are required.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: 5 * time.Minute})
	}
	if cfg.Protection == nil {
		cfg.Protection = middleware.NewLoginProtection(middleware.LoginProtectionConfig{Logger: cfg.Logger})
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = backend.MaxCourseFormSize
	}
	if cfg.ContentTTL <= 0 {
		cfg.ContentTTL = 5 * time.Minute
	}

	return &Handler{
		backend:    cfg.Backend,
		catalog:    cfg.Catalog,
		tokens:     cfg.Tokens,
		cache:      cfg.Cache,
		content:    cache.NewJSON[ContentResponse](cfg.Cache, cfg.ContentTTL),
		protection: cfg.Protection,
		db:         cfg.DB,
		logger:     cfg.Logger,
		version:    cfg.Version,
		cfg:        cfg,
		startTime:  time.Now(),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains list metadata.
type Meta struct {
	Total int `json:"total"`
}

// ErrorResponse is the failure envelope, shared with the middleware.
type (
	ErrorResponse = middleware.APIError
	ErrorDetail   = middleware.APIErrorDetail
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, message, details)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", model.UserMessage(model.ValidationErrors(fieldErrors), "Validation failed"), fieldErrors)
}

// writeBackendError maps an error returned by the backend to a response.
// fallback is the message of unexpected failures.
func (h *Handler) writeBackendError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ne *model.NetworkError
	var tooLarge *http.MaxBytesError

	switch {
	case model.IsValidation(err):
		WriteValidationError(w, model.FieldErrors(err))
	case errors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Превышен допустимый размер запроса", nil)
	case errors.As(err, &ne) && ne.StatusCode != 0:
		WriteError(w, ne.StatusCode, codeForStatus(ne.StatusCode), model.UserMessage(ne, fallback), nil)
	case errors.Is(err, model.ErrNoSession):
		WriteUnauthorized(w, "Пользователь не авторизован")
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, "Курс не найден")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusServiceUnavailable, middleware.CodeUnavailable, "Превышено время ожидания ответа", nil)
	default:
		h.logger.Error("api request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteInternalError(w, fallback)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

// decodeJSON decodes a JSON request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// courseIDParam parses the {id} URL parameter. It writes a 400 and returns
// false when the id is not a positive integer.
func courseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Некорректный идентификатор курса")
		return 0, false
	}
	return id, true
}

// requireCourse parses the id and fetches the course, writing the error
// response on failure.
func (h *Handler) requireCourse(w http.ResponseWriter, r *http.Request) (*model.Course, bool) {
	id, ok := courseIDParam(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.backend.GetCourse(r.Context(), id)
	if err != nil {
		h.writeBackendError(w, r, err, "Не удалось загрузить курс")
		return nil, false
	}
	return c, true
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/knowledge-plus/internal/middleware"
)

// Routes returns the router of the façade with its middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(h.cfg.IsDevelopment))
	r.Use(middleware.CORS(h.cfg.CORSOrigins))
	if h.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Ресурс не найден")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Метод не поддерживается", nil)
	})

	r.Get("/health", h.Health)

	requireAuth := middleware.RequireAuth(h.tokens, h.logger)

	r.Route("/api", func(r chi.Router) {
		if h.cfg.RateLimiter != nil {
			r.Use(h.cfg.RateLimiter.Middleware())
		}

		r.Route("/auth", func(r chi.Router) {
			r.With(h.protection.Middleware()).Post("/login", h.Login)
			r.With(h.protection.Middleware()).Post("/register", h.Register)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", h.Logout)
				r.Put("/password", h.ChangePassword)
				r.Get("/me", h.Me)
			})
		})

		r.Get("/catalog", h.Catalog)

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", h.ListCourses)
			r.With(requireAuth).Post("/", h.CreateCourse)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCourse)
				r.Get("/icon", h.CourseIcon)
				r.With(requireAuth).Get("/content", h.CourseContent)
				r.With(requireAuth).Put("/", h.UpdateCourse)
			})
		})
	})

	return r
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/knowledge-plus/internal/auth"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/util"
)

// MockConfig configures a Mock backend.
type MockConfig struct {
	Storage localstore.Storage
	Catalog *catalog.Catalog
	Latency Latency
	// VerifyPasswords rejects logins whose password does not match a
	// recorded hash. Unknown logins are always accepted.
	VerifyPasswords bool
	Logger          *slog.Logger
	Now             func() time.Time
}

// Mock simulates the course service. Courses and password hashes are kept
// in local storage; users are fabricated on every login.
type Mock struct {
	storage  localstore.Storage
	catalog  *catalog.Catalog
	latency  Latency
	verify   bool
	logger   *slog.Logger
	now      func() time.Time
	ids      *IDSource
	courseMu sync.Mutex
	credMu   sync.Mutex
}

// NewMock creates a Mock backend.
func NewMock(cfg MockConfig) *Mock {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Storage == nil {
		cfg.Storage = localstore.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Mock{
		storage: cfg.Storage,
		catalog: cfg.Catalog,
		latency: cfg.Latency,
		verify:  cfg.VerifyPasswords,
		logger:  cfg.Logger,
		now:     cfg.Now,
		ids:     NewIDSource(cfg.Now),
	}
}

// Login fabricates a user for login.
func (m *Mock) Login(ctx context.Context, login, password string) (*model.User, error) {
	if err := sleep(ctx, m.latency.Auth); err != nil {
		return nil, err
	}

	if m.verify {
		creds, err := m.loadCredentials(ctx)
		if err != nil {
			return nil, err
		}
		ok, known, err := creds.Verify(login, password)
		if err != nil {
			return nil, fmt.Errorf("verifying password: %w", err)
		}
		if known && !ok {
			m.logger.Warn("login rejected", "login", login)
			return nil, &model.NetworkError{StatusCode: http.StatusUnauthorized, Message: "Неверный логин или пароль"}
		}
	}

	user := m.newUser(login)
	m.logger.Info("user logged in", "user_id", user.ID, "login", login)
	return user, nil
}

// Register fabricates a user and records the password hash. Existing logins
// are not checked.
func (m *Mock) Register(ctx context.Context, login, password string) (*model.User, error) {
	if err := sleep(ctx, m.latency.Auth); err != nil {
		return nil, err
	}
	if err := m.setPassword(ctx, login, password); err != nil {
		return nil, err
	}

	user := m.newUser(login)
	m.logger.Info("user registered", "user_id", user.ID, "login", login)
	return user, nil
}

// Logout has nothing to release in the simulated service.
func (m *Mock) Logout(ctx context.Context) error {
	return ctx.Err()
}

// ChangePassword records a new password hash for the user.
func (m *Mock) ChangePassword(ctx context.Context, user *model.User, newPassword string) error {
	if user == nil {
		return model.ErrNoSession
	}
	if err := sleep(ctx, m.latency.Auth); err != nil {
		return err
	}
	if err := m.setPassword(ctx, user.Login, newPassword); err != nil {
		return err
	}
	m.logger.Info("password changed", "user_id", user.ID)
	return nil
}

func (m *Mock) newUser(login string) *model.User {
	return &model.User{ID: m.ids.Next(), Login: login, Role: model.RoleUser}
}

func (m *Mock) loadCredentials(ctx context.Context) (auth.Credentials, error) {
	creds := auth.Credentials{}
	err := localstore.GetJSON(ctx, m.storage, localstore.KeyCredentials, &creds)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return creds, nil
}

func (m *Mock) setPassword(ctx context.Context, login, password string) error {
	m.credMu.Lock()
	defer m.credMu.Unlock()

	creds, err := m.loadCredentials(ctx)
	if err != nil {
		return err
	}
	if err := creds.Set(login, password); err != nil {
		return err
	}
	if err := localstore.SetJSON(ctx, m.storage, localstore.KeyCredentials, creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// ListCourses returns the stored courses matching filter in insertion order.
func (m *Mock) ListCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	if err := sleep(ctx, m.latency.Read); err != nil {
		return nil, err
	}

	m.courseMu.Lock()
	courses, err := m.loadCourses(ctx)
	m.courseMu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]model.Course, 0, len(courses))
	for i := range courses {
		if m.matches(&courses[i], filter) {
			out = append(out, courses[i])
		}
	}
	return out, nil
}

func (m *Mock) matches(c *model.Course, f model.CourseFilter) bool {
	if f.IsZero() {
		return true
	}
	if !util.MatchesSearch(c.Title, f.Search) {
		return false
	}
	return m.catalog.MatchesFilter(c, f) && f.Price.Matches(c.MonetizationStatusID)
}

// GetCourse returns the course with id.
func (m *Mock) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	if err := sleep(ctx, m.latency.Read); err != nil {
		return nil, err
	}

	m.courseMu.Lock()
	courses, err := m.loadCourses(ctx)
	m.courseMu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range courses {
		if courses[i].ID == id {
			c := courses[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("course %d: %w", id, model.ErrNotFound)
}

// CreateCourse validates nc, resolves its catalog ids and appends it.
func (m *Mock) CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error) {
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	category, level, age, err := m.catalog.Resolve(nc.CategoryID, nc.LevelID, nc.AgeID)
	if err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.latency.Write); err != nil {
		return nil, err
	}

	m.courseMu.Lock()
	defer m.courseMu.Unlock()

	courses, err := m.loadCourses(ctx)
	if err != nil {
		return nil, err
	}

	c := model.Course{
		ID:                   m.freshCourseID(courses),
		Title:                strings.TrimSpace(nc.Title),
		Description:          nc.Description,
		Category:             category,
		LevelKnowledge:       level,
		AgePeople:            age,
		MonetizationStatusID: nc.MonetizationStatusID,
		Price:                nc.Price,
		CreatedAt:            m.now().UTC(),
		AuthorID:             nc.AuthorID,
		IconBytes:            nc.Icon,
		IconType:             nc.IconType,
		ContentBytes:         nc.Content,
	}
	c = c.Clone()

	courses = append(courses, c)
	if err := m.saveCourses(ctx, courses); err != nil {
		return nil, err
	}

	m.logger.Info("course created", "course_id", c.ID, "author_id", c.AuthorID)
	return &c, nil
}

// UpdateCourse merges patch onto the stored course and re-validates it.
func (m *Mock) UpdateCourse(ctx context.Context, id int64, patch model.CoursePatch) (*model.Course, error) {
	if err := sleep(ctx, m.latency.Write); err != nil {
		return nil, err
	}

	m.courseMu.Lock()
	defer m.courseMu.Unlock()

	courses, err := m.loadCourses(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range courses {
		if courses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("course %d: %w", id, model.ErrNotFound)
	}

	merged := patch.Apply(courses[idx])
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	courses[idx] = merged
	if err := m.saveCourses(ctx, courses); err != nil {
		return nil, err
	}

	m.logger.Info("course updated", "course_id", id)
	return &merged, nil
}

// freshCourseID returns an id not present in courses.
func (m *Mock) freshCourseID(courses []model.Course) int64 {
	taken := make(map[int64]struct{}, len(courses))
	for _, c := range courses {
		taken[c.ID] = struct{}{}
	}
	for {
		id := m.ids.Next()
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

// loadCourses reads the collection, seeding it on first use. The caller
// holds courseMu.
func (m *Mock) loadCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := localstore.GetJSON(ctx, m.storage, localstore.KeyCourses, &courses)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		courses = sampleCourses(m.now().UTC())
		if err := m.saveCourses(ctx, courses); err != nil {
			return nil, err
		}
		m.logger.Debug("seeded sample courses", "count", len(courses))
	case err != nil:
		return nil, fmt.Errorf("loading courses: %w", err)
	}
	return courses, nil
}

func (m *Mock) saveCourses(ctx context.Context, courses []model.Course) error {
	if err := localstore.SetJSON(ctx, m.storage, localstore.KeyCourses, courses); err != nil {
		return fmt.Errorf("saving courses: %w", err)
	}
	return nil
}

var _ Backend = (*Mock)(nil)

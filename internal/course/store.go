// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package course holds the client's view of the course collection.
//
// Store follows a lenient error policy: every operation returns a degraded
// value together with the error and records a human-readable message in
// State().Error until ClearError is called.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/model"
)

// Failure messages recorded in State.Error.
const (
	MsgFetchFailed    = "Failed to fetch courses."
	MsgFetchOneFailed = "Failed to fetch course."
	MsgCreateFailed   = "Failed to create course."
	MsgUpdateFailed   = "Failed to update course."
)

// State is a snapshot of the store.
type State struct {
	Courses []model.Course
	Loading bool
	Error   string
}

// Store owns the fetched course collection. Safe for concurrent use;
// overlapping mutations resolve as last completion wins.
type Store struct {
	backend backend.Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	courses  []model.Course
	inFlight int
	errMsg   string
}

// New creates an empty Store.
func New(b backend.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: b, logger: logger, courses: []model.Course{}}
}

// State returns a snapshot of the store. Course byte slices are copied.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Courses: cloneAll(s.courses), Loading: s.inFlight > 0, Error: s.errMsg}
}

// ClearError resets the recorded error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// FetchCourses replaces the held collection with the courses matching
// filter. On failure the collection is emptied.
func (s *Store) FetchCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	s.begin()
	courses, err := s.backend.ListCourses(ctx, filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if err != nil {
		s.courses = []model.Course{}
		s.errMsg = model.UserMessage(err, MsgFetchFailed)
		s.logger.Warn("fetching courses", "error", err)
		return []model.Course{}, fmt.Errorf("fetching courses: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}
	s.courses = cloneAll(courses)
	return courses, nil
}

// GetCourseByID returns the course with id, or nil without an error when
// it does not exist. Other failures are recorded and leave the held
// collection untouched.
func (s *Store) GetCourseByID(ctx context.Context, id int64) (*model.Course, error) {
	c, err := s.backend.GetCourse(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.fail(err, MsgFetchOneFailed)
		s.logger.Warn("fetching course", "course_id", id, "error", err)
		return nil, fmt.Errorf("fetching course %d: %w", id, err)
	}
	return c, nil
}

// CreateCourse validates nc, creates it and appends the result to the held
// collection. Invalid requests never reach the backend.
func (s *Store) CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error) {
	if err := nc.Validate(); err != nil {
		s.fail(err, MsgCreateFailed)
		return nil, err
	}

	s.begin()
	c, err := s.backend.CreateCourse(ctx, nc)
	s.end()

	if err != nil {
		s.fail(err, MsgCreateFailed)
		s.logger.Warn("creating course", "error", err)
		return nil, fmt.Errorf("creating course: %w", err)
	}

	s.mu.Lock()
	s.courses = append(s.courses, c.Clone())
	s.mu.Unlock()
	return c, nil
}

// UpdateCourse merges patch onto the course with id and replaces the held
// record. When the course is held the merge is validated before the call.
func (s *Store) UpdateCourse(ctx context.Context, id int64, patch model.CoursePatch) (*model.Course, error) {
	if held, ok := s.held(id); ok {
		merged := patch.Apply(held)
		if err := merged.Validate(); err != nil {
			s.fail(err, MsgUpdateFailed)
			return nil, err
		}
	}

	s.begin()
	c, err := s.backend.UpdateCourse(ctx, id, patch)
	s.end()

	if err != nil {
		s.fail(err, MsgUpdateFailed)
		s.logger.Warn("updating course", "course_id", id, "error", err)
		return nil, fmt.Errorf("updating course %d: %w", id, err)
	}

	s.mu.Lock()
	for i := range s.courses {
		if s.courses[i].ID == id {
			s.courses[i] = c.Clone()
		}
	}
	s.mu.Unlock()
	return c, nil
}

func (s *Store) held(id int64) (model.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.courses {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return model.Course{}, false
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

func cloneAll(courses []model.Course) []model.Course {
	out := make([]model.Course, len(courses))
	for i, c := range courses {
		out[i] = c.Clone()
	}
	return out
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend is the transport boundary used by the session and course
// stores. Mock simulates the remote service on top of local storage; Remote
// talks to the REST façade over HTTP.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// Backend is the set of remote operations the stores depend on.
type Backend interface {
	Login(ctx context.Context, login, password string) (*model.User, error)
	Register(ctx context.Context, login, password string) (*model.User, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, user *model.User, newPassword string) error

	ListCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	// GetCourse returns an error matching model.ErrNotFound when id is absent.
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error)
	UpdateCourse(ctx context.Context, id int64, patch model.CoursePatch) (*model.Course, error)
}

// Latency is the simulated round-trip time per operation group.
type Latency struct {
	Auth  time.Duration
	Read  time.Duration
	Write time.Duration
}

// DefaultLatency matches the delays of the demo service.
var DefaultLatency = Latency{
	Auth:  500 * time.Millisecond,
	Read:  300 * time.Millisecond,
	Write: 500 * time.Millisecond,
}

// Scale multiplies every delay by f. Non-positive f disables latency.
func (l Latency) Scale(f float64) Latency {
	if f <= 0 {
		return Latency{}
	}
	return Latency{
		Auth:  time.Duration(float64(l.Auth) * f),
		Read:  time.Duration(float64(l.Read) * f),
		Write: time.Duration(float64(l.Write) * f),
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IDSource hands out ids from a millisecond clock. Ids are strictly
// increasing within a process even when the clock stalls or steps back.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource creates an IDSource reading now, or time.Now when nil.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns a fresh id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe raises the floor so later ids exceed id.
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	if id > s.last {
		s.last = id
	}
	s.mu.Unlock()
}

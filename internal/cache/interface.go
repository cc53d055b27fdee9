// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the byte cache used by the REST façade for rendered
// course content, with in-memory and Redis implementations.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"
)

// Cache is a thread-safe byte cache.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value; a zero ttl means the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// StatsProvider is implemented by caches that count hits and misses.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hitRate"` // percent
	Size    int64   `json:"size"`    // bytes, memory backend only
}

// counters tracks lookups for Stats. Safe for concurrent use.
type counters struct {
	hits, misses, sets atomic.Int64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }
func (c *counters) set()  { c.sets.Add(1) }

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

func (c *counters) snapshot(backend string) Stats {
	st := Stats{
		Backend: backend,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total) * 100
	}
	return st
}

var (
	ErrCacheMiss   = errors.New("cache: miss")
	ErrCacheClosed = errors.New("cache: closed")
)

const (
	PrefixCourseContent = "course:content:"
	PrefixCourseThumb   = "course:thumb:"
)

// CourseContentKey is the key of the rendered HTML of a course.
func CourseContentKey(courseID int64) string {
	return PrefixCourseContent + strconv.FormatInt(courseID, 10)
}

// CourseThumbKey is the key of the icon thumbnail of a course.
func CourseThumbKey(courseID int64) string {
	return PrefixCourseThumb + strconv.FormatInt(courseID, 10)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCacheOptions configures NewMemoryCache. A zero MaxSize means no
// entry limit and a zero CleanupInterval disables the sweeper.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache keeps rendered content in process memory. When full it
// drops expired entries first, then the entry closest to expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	bytes   int64
	closed  bool
	done    chan struct{}

	ttl     time.Duration
	maxSize int
	stats   counters
	now     func() time.Time
}

// NewMemoryCache returns an empty cache and starts its sweeper.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
		ttl:     opts.DefaultTTL,
		maxSize: opts.MaxSize,
		now:     time.Now,
	}
	if opts.CleanupInterval > 0 {
		go c.sweep(opts.CleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	e, ok := c.entries[key]
	if ok && e.expired(c.now()) {
		c.remove(key)
		ok = false
	}
	if !ok {
		c.stats.miss()
		return nil, ErrCacheMiss
	}
	c.stats.hit()
	return append([]byte(nil), e.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}

	if _, exists := c.entries[key]; exists {
		c.remove(key)
	} else if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.makeRoom()
	}

	c.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	c.bytes += int64(len(value))
	c.stats.set()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	return c.locked(func() { c.remove(key) })
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	return c.locked(func() {
		for key := range c.entries {
			if strings.HasPrefix(key, prefix) {
				c.remove(key)
			}
		}
	})
}

func (c *MemoryCache) Clear(_ context.Context) error {
	return c.locked(func() {
		c.entries = make(map[string]memoryEntry)
		c.bytes = 0
	})
}

func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	var found bool
	err := c.locked(func() {
		e, ok := c.entries[key]
		if ok && e.expired(c.now()) {
			c.remove(key)
			ok = false
		}
		found = ok
	})
	return found, err
}

// Close stops the sweeper. Later calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	items, size := len(c.entries), c.bytes
	c.mu.Unlock()

	st := c.stats.snapshot("memory")
	st.Items = items
	st.Size = size
	return st
}

func (c *MemoryCache) ResetStats() { c.stats.reset() }

// locked runs fn under the mutex unless the cache is closed.
func (c *MemoryCache) locked(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	fn()
	return nil
}

// remove must be called with mu held.
func (c *MemoryCache) remove(key string) {
	if e, ok := c.entries[key]; ok {
		c.bytes -= int64(len(e.value))
		delete(c.entries, key)
	}
}

// makeRoom must be called with mu held.
func (c *MemoryCache) makeRoom() {
	now := c.now()
	c.pruneExpired(now)
	if len(c.entries) < c.maxSize {
		return
	}

	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = key, e.expiresAt
		}
	}
	c.remove(victim)
}

func (c *MemoryCache) pruneExpired(now time.Time) int {
	n := 0
	for key, e := range c.entries {
		if e.expired(now) {
			c.remove(key)
			n++
		}
	}
	return n
}

func (c *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.locked(func() { c.pruneExpired(c.now()) })
		}
	}
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)

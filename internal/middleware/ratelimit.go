// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an untouched client limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type trackedLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key.
type limiterSet struct {
	mu      sync.Mutex
	buckets map[string]*trackedLimiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		buckets: make(map[string]*trackedLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// allow spends one token from the bucket of key, creating it on first use.
func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		b = &trackedLimiter{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	s.mu.Unlock()
	return b.AllowN(now, 1)
}

// evictIdle drops buckets not used for idle and returns how many went.
func (s *limiterSet) evictIdle(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for key, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
			n++
		}
	}
	return n
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimiter throttles every API request per client IP.
type RateLimiter struct {
	clients *limiterSet
	logger  *slog.Logger
}

// NewRateLimiter allows rps requests per second per IP with burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{clients: newLimiterSet(rps, burst), logger: logger}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.clients.allow(ip) {
				rl.logger.Warn("api rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				WriteAPIError(w, http.StatusTooManyRequests, CodeRateLimited, "Слишком много запросов, попробуйте позже", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Cleanup forgets clients idle for longer than limiterIdleTTL.
func (rl *RateLimiter) Cleanup() int {
	return rl.clients.evictIdle(limiterIdleTTL)
}

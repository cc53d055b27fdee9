// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProtection(maxAttempts int, lockout, window time.Duration) (*LoginProtection, *fakeClock) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockout,
		AttemptWindow:     window,
	})
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	lp.now = clock.now
	return lp, clock
}

func TestNewLoginProtectionDefaultValues(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})

	if lp.maxFailedAttempts != 5 {
		t.Errorf("maxFailedAttempts = %d, want 5", lp.maxFailedAttempts)
	}
	if lp.lockoutDuration != 15*time.Minute {
		t.Errorf("lockoutDuration = %v, want 15m", lp.lockoutDuration)
	}
	if lp.attemptWindow != 15*time.Minute {
		t.Errorf("attemptWindow = %v, want 15m", lp.attemptWindow)
	}
}

func TestLoginProtectionLocksAfterMaxAttempts(t *testing.T) {
	lp, clock := newTestProtection(3, time.Minute, 10*time.Minute)

	for i := 1; i < 3; i++ {
		if locked, _ := lp.RecordFailedAttempt("alice"); locked {
			t.Fatalf("locked after %d attempts", i)
		}
	}
	if got := lp.RemainingAttempts("alice"); got != 1 {
		t.Errorf("RemainingAttempts = %d, want 1", got)
	}

	locked, d := lp.RecordFailedAttempt("Alice ")
	if !locked || d != time.Minute {
		t.Fatalf("third attempt: locked = %v, duration = %v", locked, d)
	}
	if locked, remaining := lp.IsLocked("alice"); !locked || remaining != time.Minute {
		t.Errorf("IsLocked = %v, %v", locked, remaining)
	}

	clock.advance(time.Minute + time.Second)
	if locked, _ := lp.IsLocked("alice"); locked {
		t.Error("lock should expire")
	}
}

func TestLoginProtectionBackoffDoubles(t *testing.T) {
	lp, clock := newTestProtection(1, time.Minute, time.Hour)

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}
	for i, w := range want {
		locked, d := lp.RecordFailedAttempt("bob")
		if !locked || d != w {
			t.Errorf("lockout %d: locked = %v, duration = %v, want %v", i+1, locked, d, w)
		}
		clock.advance(d + time.Second)
	}
}

func TestLoginProtectionBackoffCapped(t *testing.T) {
	lp, _ := newTestProtection(1, 20*time.Hour, time.Hour)

	lp.RecordFailedAttempt("carol")
	_, d := lp.RecordFailedAttempt("carol")
	if d != 24*time.Hour {
		t.Errorf("duration = %v, want 24h cap", d)
	}
}

func TestLoginProtectionWindowResets(t *testing.T) {
	lp, clock := newTestProtection(3, time.Minute, time.Minute)

	lp.RecordFailedAttempt("dave")
	lp.RecordFailedAttempt("dave")
	clock.advance(2 * time.Minute)

	if got := lp.RemainingAttempts("dave"); got != 3 {
		t.Errorf("RemainingAttempts after window = %d, want 3", got)
	}
	if locked, _ := lp.RecordFailedAttempt("dave"); locked {
		t.Error("counter should restart after the window")
	}
}

func TestLoginProtectionSuccessClears(t *testing.T) {
	lp, _ := newTestProtection(3, time.Minute, time.Minute)

	lp.RecordFailedAttempt("erin")
	lp.RecordSuccessfulLogin("ERIN")
	if got := lp.RemainingAttempts("erin"); got != 3 {
		t.Errorf("RemainingAttempts = %d, want 3", got)
	}
}

func TestLoginProtectionCleanup(t *testing.T) {
	lp, clock := newTestProtection(5, time.Minute, time.Minute)

	lp.RecordFailedAttempt("old")
	clock.advance(2 * time.Minute)
	lp.RecordFailedAttempt("fresh")

	if removed := lp.Cleanup(); removed != 1 {
		t.Errorf("Cleanup removed %d, want 1", removed)
	}
	if got := lp.RemainingAttempts("fresh"); got != 4 {
		t.Errorf("fresh entry should survive, remaining = %d", got)
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 2})
	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := post("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, code)
		}
	}
	if code := post("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request: status %d, want 429", code)
	}
	if code := post("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other IP: status %d, want 200", code)
	}

	get := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	get.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, get)
	if rr.Code != http.StatusOK {
		t.Errorf("GET should not be limited, status %d", rr.Code)
	}
}

func TestWriteLockout(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteLockout(rr, 90*time.Second)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want 90", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "192.0.2.1:5555", "198.51.100.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "192.0.2.1:5555", "203.0.113.5"},
		{"no port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

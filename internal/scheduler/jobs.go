// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/knowledge-plus/internal/cache"
	"github.com/olegiv/knowledge-plus/internal/store"
)

// Default schedules and retention for the maintenance jobs.
const (
	BadgerGCSchedule     = "@every 10m"
	PurgeEventsSchedule  = "@daily"
	CacheStatsSchedule   = "@hourly"
	ThrottleCleanupSchedule = "@every 5m"

	EventRetention = 30 * 24 * time.Hour
)

// GarbageCollector is implemented by localstore.Badger.
type GarbageCollector interface {
	RunGC() (int, error)
}

// Cleaner is implemented by middleware.LoginProtection and
// middleware.RateLimiter.
type Cleaner interface {
	Cleanup() int
}

// BadgerGCJob reclaims Badger value-log space.
func BadgerGCJob(gc GarbageCollector, logger *slog.Logger) Job {
	logger = orDefault(logger)
	return Job{
		Name:        "badger_gc",
		Description: "Reclaim space in the Badger value log",
		Schedule:    BadgerGCSchedule,
		Run: func(ctx context.Context) error {
			n, err := gc.RunGC()
			if err != nil {
				return fmt.Errorf("badger gc: %w", err)
			}
			if n > 0 {
				logger.Info("badger value log collected", "rewrites", n)
			}
			return nil
		},
	}
}

// PurgeEventsJob deletes event log rows older than retention.
func PurgeEventsJob(db *sql.DB, retention time.Duration, now func() time.Time, logger *slog.Logger) Job {
	logger = orDefault(logger)
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:        "purge_events",
		Description: "Delete old event log entries",
		Schedule:    PurgeEventsSchedule,
		Run: func(ctx context.Context) error {
			cutoff := now().Add(-retention)
			n, err := store.New(db).DeleteEventsBefore(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("purging events: %w", err)
			}
			if n > 0 {
				logger.Info("purged old events", "count", n, "before", cutoff.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// CacheStatsJob logs cache counters.
func CacheStatsJob(sp cache.StatsProvider, logger *slog.Logger) Job {
	logger = orDefault(logger)
	return Job{
		Name:        "cache_stats",
		Description: "Log cache hit rate",
		Schedule:    CacheStatsSchedule,
		Run: func(ctx context.Context) error {
			st := sp.Stats()
			logger.Debug("cache stats",
				"backend", st.Backend,
				"hits", st.Hits,
				"misses", st.Misses,
				"items", st.Items,
				"hit_rate", st.HitRate,
			)
			return nil
		},
	}
}

// ThrottleCleanupJob drops expired login lockouts and idle rate limiters.
func ThrottleCleanupJob(logger *slog.Logger, cleaners ...Cleaner) Job {
	logger = orDefault(logger)
	return Job{
		Name:        "throttle_cleanup",
		Description: "Forget expired login lockouts and idle client limiters",
		Schedule:    ThrottleCleanupSchedule,
		Run: func(ctx context.Context) error {
			removed := 0
			for _, c := range cleaners {
				removed += c.Cleanup()
			}
			if removed > 0 {
				logger.Debug("throttle state cleaned up", "removed", removed)
			}
			return nil
		},
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/cache"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/config"
	"github.com/olegiv/knowledge-plus/internal/handler/api"
	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/logging"
	"github.com/olegiv/knowledge-plus/internal/middleware"
	"github.com/olegiv/knowledge-plus/internal/scheduler"
	"github.com/olegiv/knowledge-plus/internal/session"
	"github.com/olegiv/knowledge-plus/internal/store"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo backend over REST",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

// serverStorage holds the demo backend's records. The sqlite driver shares
// the server database.
func serverStorage(cfg *config.Config, db *sql.DB) (localstore.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		return store.NewKV(db), nil
	case config.DriverBadger:
		return localstore.OpenBadger(cfg.BadgerDir)
	default:
		return localstore.NewMemory(), nil
	}
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)

	logger.Info("initializing database", "path", cfg.ServerDBPath)
	db, err := store.Open(cfg.ServerDBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	// Upgrade logger to also write WARN and ERROR logs to the event log.
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	logger.Info("event log integration enabled", "min_level", "warn")

	storage, err := serverStorage(cfg, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("error closing storage", "error", err)
		}
	}()

	cat := catalog.Default()
	mock := backend.NewMock(backend.MockConfig{
		Storage:         storage,
		Catalog:         cat,
		Latency:         backend.DefaultLatency.Scale(cfg.LatencyScale),
		VerifyPasswords: cfg.VerifyPasswords,
		Logger:          logger,
	})

	respCache := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() { _ = respCache.Close() }()

	protectionCfg := middleware.DefaultLoginProtectionConfig()
	protectionCfg.Logger = logger
	protection := middleware.NewLoginProtection(protectionCfg)
	throttles := []scheduler.Cleaner{protection}

	var limiter *middleware.RateLimiter
	if cfg.APIRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst, logger)
		throttles = append(throttles, limiter)
	}

	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.PurgeEventsJob(db, scheduler.EventRetention, nil, logger),
		scheduler.ThrottleCleanupJob(logger, throttles...),
	}
	if gc, ok := storage.(scheduler.GarbageCollector); ok {
		jobs = append(jobs, scheduler.BadgerGCJob(gc, logger))
	}
	if sp, ok := respCache.(cache.StatsProvider); ok {
		jobs = append(jobs, scheduler.CacheStatsJob(sp, logger))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("scheduling %s: %w", job.Name, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	h := api.NewHandler(api.Config{
		Backend:        mock,
		Catalog:        cat,
		Tokens:         session.NewTokens(db, cfg.SessionLifetime),
		Cache:          respCache,
		Protection:     protection,
		RateLimiter:    limiter,
		DB:             db,
		Logger:         logger,
		Version:        c.version,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadSize:  cfg.MaxUploadSize,
		ContentTTL:     cfg.CacheTTLDuration(),
		RequestTimeout: cfg.RequestTimeout,
		IsDevelopment:  cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", c.version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The version is printed without loading configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.emit(cmd, c.version, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, c.version.String())
			})
		},
	}
}

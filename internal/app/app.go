// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package app wires the catalog, local storage, backend and stores into one
// explicit context shared by the CLI commands and the server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/knowledge-plus/internal/backend"
	"github.com/olegiv/knowledge-plus/internal/catalog"
	"github.com/olegiv/knowledge-plus/internal/config"
	"github.com/olegiv/knowledge-plus/internal/course"
	"github.com/olegiv/knowledge-plus/internal/localstore"
	"github.com/olegiv/knowledge-plus/internal/session"
	"github.com/olegiv/knowledge-plus/internal/store"
	"github.com/olegiv/knowledge-plus/internal/wizard"
)

// Context holds everything a command needs. It replaces package-level state.
type Context struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Storage localstore.Storage
	Backend backend.Backend
	Session *session.Store
	Courses *course.Store
	Logger  *slog.Logger
}

// New opens local storage, builds the configured backend and restores the
// persisted session.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	b, err := NewBackend(cfg, cat, storage, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	c := &Context{
		Config:  cfg,
		Catalog: cat,
		Storage: storage,
		Backend: b,
		Session: session.New(b, storage, logger),
		Courses: course.New(b, logger),
		Logger:  logger,
	}

	if remote, ok := b.(*backend.Remote); ok {
		remote.OnUnauthorized(c.expireSession)
	}

	if err := c.Session.Restore(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return c, nil
}

func (c *Context) expireSession(ctx context.Context) {
	if err := c.Session.Expire(ctx); err != nil {
		c.Logger.Warn("expiring rejected session", "error", err)
	}
}

// OpenStorage opens the local storage driver named by cfg.
func OpenStorage(cfg *config.Config) (localstore.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		kv, err := store.OpenKV(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return kv, nil
	case config.DriverBadger:
		b, err := localstore.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("opening badger storage: %w", err)
		}
		return b, nil
	case config.DriverMemory:
		return localstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewBackend builds the mock or remote backend named by cfg.
func NewBackend(cfg *config.Config, cat *catalog.Catalog, storage localstore.Storage, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendMock:
		return backend.NewMock(backend.MockConfig{
			Storage:         storage,
			Catalog:         cat,
			Latency:         backend.DefaultLatency.Scale(cfg.LatencyScale),
			VerifyPasswords: cfg.VerifyPasswords,
			Logger:          logger,
		}), nil
	case config.BackendRemote:
		r, err := backend.NewRemote(backend.RemoteConfig{
			BaseURL:    cfg.APIURL,
			Timeout:    cfg.APITimeout,
			RetryCount: cfg.APIRetries,
			Storage:    storage,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating remote backend: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// NewWizard starts a course creation wizard that submits through the
// course store.
func (c *Context) NewWizard() *wizard.Wizard {
	return wizard.New(c.Catalog, c.Courses)
}

// Close releases the local storage.
func (c *Context) Close() error {
	if c.Storage == nil {
		return nil
	}
	return c.Storage.Close()
}

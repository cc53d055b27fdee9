// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/knowledge-plus/internal/app"
	"github.com/olegiv/knowledge-plus/internal/config"
	"github.com/olegiv/knowledge-plus/internal/model"
	"github.com/olegiv/knowledge-plus/internal/version"
)

// cli carries state shared by every command.
type cli struct {
	version version.Info
	cfg     *config.Config
	logger  *slog.Logger

	envFile string
	jsonOut bool
	verbose bool
}

func newRootCmd(info version.Info) *cobra.Command {
	c := &cli{version: info}

	root := &cobra.Command{
		Use:           "kplus",
		Short:         "Knowledge Plus course platform",
		Long:          "Browse, create and edit courses against the demo backend or a remote REST server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newPasswdCmd(c),
		newCatalogCmd(c),
		newCoursesCmd(c),
		newCourseCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup loads configuration and the client logger. Logs go to stderr so
// stdout stays parseable.
func (c *cli) setup(cmd *cobra.Command) error {
	// A missing dotenv file is not an error.
	_ = godotenv.Load(c.envFile)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.SlogLevel()
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// withApp opens the application context for the duration of fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Context) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Warn("closing local storage", "error", err)
		}
	}()
	signedIn := a.Session.Current() != nil
	err = fn(ctx, a)
	return sessionExpired(signedIn, a.Session.Current() == nil, err)
}

// msgSessionExpired tells the user to sign in again after the backend
// rejected the stored session.
const msgSessionExpired = "Сессия истекла, войдите командой kplus login"

// sessionExpired replaces err with a login hint when it ended a session.
func sessionExpired(signedIn, signedOut bool, err error) error {
	if signedIn && signedOut && errors.Is(err, model.ErrUnauthorized) {
		return &reportedError{msg: msgSessionExpired, err: err}
	}
	return err
}

// requireUser returns the signed-in user or model.ErrNoSession.
func requireUser(a *app.Context) (*model.User, error) {
	user := a.Session.Current()
	if user == nil {
		return nil, fmt.Errorf("войдите командой kplus login: %w", model.ErrNoSession)
	}
	return user, nil
}

// reportedError pairs an error with the message a store recorded for it.
type reportedError struct {
	msg string
	err error
}

func (e *reportedError) Error() string { return e.msg }
func (e *reportedError) Unwrap() error { return e.err }

// reported attaches the store's message to err. An empty message keeps err.
func reported(msg string, err error) error {
	if err == nil || msg == "" {
		return err
	}
	return &reportedError{msg: msg, err: err}
}

// errorMessage renders err for the terminal.
func errorMessage(err error) string {
	var re *reportedError
	if errors.As(err, &re) {
		return re.msg
	}
	return model.UserMessage(err, err.Error())
}

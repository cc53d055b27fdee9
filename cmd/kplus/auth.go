// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/knowledge-plus/internal/app"
	"github.com/olegiv/knowledge-plus/internal/auth"
)

// readPassword returns flag, or the first line of stdin when flag is empty.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <login>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				user, err := a.Session.Login(ctx, args[0], pw)
				if err != nil {
					return reported(a.Session.State().Error, err)
				}
				return c.emit(cmd, user, func(w io.Writer) {
					_, _ = fmt.Fprint(w, "Вы вошли как ")
					printUser(w, user)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var (
		password    string
		confirm     string
		acceptTerms bool
	)
	cmd := &cobra.Command{
		Use:   "register <login>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("confirm") {
				confirm = pw
			}
			form := auth.RegisterForm{Login: args[0], Password: pw, ConfirmPassword: confirm, AcceptTerms: acceptTerms}
			if err := form.Validate(); err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				user, err := a.Session.Register(ctx, form.Login, form.Password)
				if err != nil {
					return reported(a.Session.State().Error, err)
				}
				return c.emit(cmd, user, func(w io.Writer) {
					_, _ = fmt.Fprint(w, "Аккаунт создан: ")
					printUser(w, user)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")
	cmd.Flags().BoolVar(&acceptTerms, "accept-terms", false, "accept the terms of service")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				if err := a.Session.Logout(ctx); err != nil {
					return reported(a.Session.State().Error, err)
				}
				return c.emit(cmd, map[string]bool{"loggedOut": true}, func(w io.Writer) {
					_, _ = fmt.Fprintln(w, "Вы вышли из аккаунта")
				})
			})
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				user, err := requireUser(a)
				if err != nil {
					return err
				}
				return c.emit(cmd, user, func(w io.Writer) { printUser(w, user) })
			})
		},
	}
}

func newPasswdCmd(c *cli) *cobra.Command {
	var (
		password string
		confirm  string
	)
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the signed-in user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("confirm") {
				confirm = pw
			}
			form := auth.ChangePasswordForm{Password: pw, ConfirmPassword: confirm}
			if err := form.Validate(); err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Context) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				if err := a.Session.ChangePassword(ctx, form.Password); err != nil {
					return reported(a.Session.State().Error, err)
				}
				return c.emit(cmd, map[string]bool{"changed": true}, func(w io.Writer) {
					_, _ = fmt.Fprintln(w, "Пароль изменен")
				})
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (read from stdin when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")
	return cmd
}

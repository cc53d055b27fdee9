// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/knowledge-plus/internal/model"
)

// MinPasswordLength is the shortest password accepted at registration and
// password change.
const MinPasswordLength = 6

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// LoginForm is the sign-in form.
type LoginForm struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the sign-up form.
type RegisterForm struct {
	Login           string `json:"login" validate:"required,login"`
	Password        string `json:"password" validate:"required,min=6,nefield=Login"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	AcceptTerms     bool   `json:"acceptTerms" validate:"required"`
}

// ChangePasswordForm is the profile password change form.
type ChangePasswordForm struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// messages maps "field.tag" to the message shown to the user.
var messages = map[string]string{
	"login.required":          "Логин обязателен",
	"login.login":             "Логин может содержать только буквы, цифры и символ подчеркивания",
	"password.required":       "Пароль обязателен",
	"password.min":            "Пароль должен содержать минимум 6 символов",
	"password.nefield":        "Пароль не должен совпадать с логином",
	"confirmPassword.eqfield": "Пароли не совпадают",
	"acceptTerms.required":    "Необходимо принять условия политики компании",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("login", func(fl validator.FieldLevel) bool {
			return loginPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the login form.
func (f LoginForm) Validate() error { return validateForm(f) }

// Validate checks the registration form.
func (f RegisterForm) Validate() error { return validateForm(f) }

// Validate checks the password change form.
func (f ChangePasswordForm) Validate() error { return validateForm(f) }

// validateForm runs the struct rules and converts failures into
// model.ValidationErrors keyed by JSON field name.
func validateForm(form any) error {
	err := formValidator().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := model.ValidationErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = "Недопустимое значение"
		}
		out.Add(field, msg)
	}
	return out.Err()
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFound reports that a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSession is returned by operations that need a current user when there is none.
// It matches ErrNotFound with errors.Is.
var ErrNoSession = fmt.Errorf("no current session: %w", ErrNotFound)

// ErrUnauthorized is matched by errors.Is on any NetworkError carrying a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError is a client-detected problem with a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidationErrors collects field errors keyed by field name.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first message per field.
func (e ValidationErrors) Add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

// Err returns nil when no field errors were collected.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err is a ValidationError or ValidationErrors.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}

// FieldErrors flattens a validation error into a field to message map.
// Returns nil for non-validation errors.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return map[string]string{ve.Field: ve.Message}
	}
	var ves ValidationErrors
	if errors.As(err, &ves) {
		out := make(map[string]string, len(ves))
		for k, v := range ves {
			out[k] = v
		}
		return out
	}
	return nil
}

// NetworkError is a failure at the transport boundary.
// StatusCode is 0 when no response was received.
type NetworkError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("network error (status %d): %s: %v", e.StatusCode, msg, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("network error (status %d): %s", e.StatusCode, msg)
	case e.Err != nil:
		return fmt.Sprintf("network error: %v", e.Err)
	default:
		return "network error: " + msg
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is makes a 401 NetworkError match ErrUnauthorized and a 404 match ErrNotFound.
func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UserMessage picks the human-readable message for a failed operation. A
// message supplied by the server or field validation wins over fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ne *NetworkError
	if errors.As(err, &ne) && ne.StatusCode != 0 && ne.Message != "" {
		return ne.Message
	}
	if fields := FieldErrors(err); len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, fields[k])
		}
		return strings.Join(msgs, "; ")
	}
	return fallback
}

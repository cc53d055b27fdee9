// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes written by the middleware.
const (
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
	CodeUnavailable  = "service_unavailable"
)

// APIErrorDetail is the "error" member of a failure envelope.
type APIErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// APIError is the failure envelope shared with the handlers.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// WriteAPIError writes {"error":{...}} with status.
func WriteAPIError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	body, err := json.Marshal(APIError{Error: APIErrorDetail{Code: code, Message: message, Details: details}})
	if err != nil {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// Package api provides the HTTP boundary for bookmuse: routing, request
// validation, and mapping of pipeline failures to transport status codes.
// Full technical detail (raw model output, wrapped errors) stays in the
// logs; callers only see short diagnostics.
package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Error codes for API responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeMalformedAI      = "AI_RESPONSE_ERROR"
	ErrCodeUpstreamFailed   = "EXTERNAL_SERVICE_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// apiError is the error payload returned to clients.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

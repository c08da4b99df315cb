// Package middleware provides HTTP middleware and shared response helpers
// for the pipeline engine's chi-based router.
//
// Import Path: enrichpipe.io/engine/internal/api/middleware
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "enrichpipe.io/engine/internal/pkg/errors"
	"enrichpipe.io/engine/internal/pkg/logger"
)

// WriteError writes err as a JSON error body, called directly from each
// handler rather than through a centralized error-collecting middleware.
// An *apperrors.AppError is rendered with its own code/status; anything
// else falls back to a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		logger.Warn("request error",
			"code", appErr.Code,
			"message", appErr.Message,
			"status", appErr.HTTPStatus,
			"request_id", GetRequestID(r.Context()),
			"error", appErr.Err,
		)
		writeJSON(w, appErr.HTTPStatus, map[string]string{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}

	logger.Error("unhandled request error", "error", err, "request_id", GetRequestID(r.Context()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"code":    "INTERNAL_ERROR",
		"message": "an internal error occurred",
	})
}

// WriteJSON writes v as a JSON response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

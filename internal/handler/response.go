package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "item not found with id abc123"}
//
// plus "fields" for validation errors, so clients can attach messages to
// form inputs.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/stash/internal/apperror"
)

// maxBodyBytes bounds request bodies. Items carry media metadata, not media.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON sets headers, then status, then the body. Headers written after
// the first body byte are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error from the service layer to a status code.
// Anything that is not an *apperror.AppError becomes an opaque 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := statusOf(err)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads exactly one JSON value into dst. Unknown fields are
// rejected so typos in patch bodies do not silently do nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is empty")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must hold a single JSON value")
	}
	return nil
}

// intParam parses an optional integer query parameter; absent is 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, "must be an integer")
	}
	return n, nil
}

// priceParam parses an optional cents value; absent is nil.
func priceParam(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.ValidationFailed(name, "must be an integer number of cents")
	}
	return &n, nil
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apperrors "demandcast/internal/errors"
)

// errorResponse is the JSON error body returned by every endpoint.
type errorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps a pipeline error onto an HTTP status. Anything
// unrecognized is a 500 with a generic body.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case apperrors.IsType(err, apperrors.ErrTypeValidation),
		apperrors.IsType(err, apperrors.ErrTypeParsing),
		apperrors.IsType(err, apperrors.ErrTypeSchema):
		status = http.StatusBadRequest
		code = "BAD_REQUEST"
	case apperrors.IsType(err, apperrors.ErrTypeNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case apperrors.IsType(err, apperrors.ErrTypeStorage):
		status = http.StatusServiceUnavailable
		code = "STORAGE"
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err)
	} else {
		logger.WarnContext(r.Context(), "request rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}

	msg := "internal error"
	if status < http.StatusInternalServerError {
		msg = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Status: status, Code: code, Message: msg})
}

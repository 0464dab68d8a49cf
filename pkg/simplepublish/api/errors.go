package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	body.RequestID = RequestID(r.Context())
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

// badRequest reports malformed input that never reached the service.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorBody(w, r, http.StatusBadRequest, ErrorBody{Code: "invalid_request", Message: message})
}

// writeError maps service errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without its message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		validationErr *simplepublish.ValidationError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr):
		writeErrorBody(w, r, http.StatusBadRequest, ErrorBody{
			Code:    "validation_error",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		})
	case errors.Is(err, simplepublish.ErrNotFound):
		writeErrorBody(w, r, http.StatusNotFound, ErrorBody{Code: "not_found", Message: err.Error()})
	case errors.Is(err, simplepublish.ErrConflict):
		writeErrorBody(w, r, http.StatusConflict, ErrorBody{Code: "conflict", Message: err.Error()})
	case errors.Is(err, simplepublish.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		writeErrorBody(w, r, http.StatusRequestEntityTooLarge, ErrorBody{Code: "file_too_large", Message: err.Error()})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "error", err)
		writeErrorBody(w, r, http.StatusInternalServerError, ErrorBody{
			Code:    "internal_error",
			Message: "An internal server error occurred",
		})
	}
}

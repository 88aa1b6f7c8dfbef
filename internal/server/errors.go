package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/mock-interviewer/internal/interview"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUploadTooLarge indicates the setup form exceeded the upload limit
type ErrUploadTooLarge struct {
	Limit int64
}

func (e *ErrUploadTooLarge) Error() string {
	return fmt.Sprintf("upload exceeds %d bytes", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound *interview.SessionNotFoundError
		invalid  *ErrValidation
		tooLarge *ErrUploadTooLarge
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, interview.ErrAlreadyConfigured):
		return http.StatusConflict
	case errors.Is(err, interview.ErrSessionClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// setupFailedMessage is shown for setup errors the candidate cannot act on
const setupFailedMessage = "Failed to set up interview. Please try again."

// userMessage returns the message shown to the candidate for a setup error.
// Internal error text is never included.
func userMessage(err error) string {
	var notFound *interview.SessionNotFoundError
	switch {
	case errors.As(err, &notFound), errors.Is(err, interview.ErrSessionClosed):
		return "Invalid session. Please reconnect."
	case errors.Is(err, interview.ErrAlreadyConfigured):
		return "Interview is already set up for this session."
	default:
		return setupFailedMessage
	}
}

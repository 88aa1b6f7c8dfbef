package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/mock-interviewer/internal/interview"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "skills", Message: "too long"}
	assert.Equal(t, "validation error: skills - too long", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "SessionNotFound",
			err:      &interview.SessionNotFoundError{ClientID: "c1"},
			expected: http.StatusNotFound,
		},
		{
			name:     "wrapped SessionNotFound",
			err:      fmt.Errorf("setup: %w", &interview.SessionNotFoundError{ClientID: "c1"}),
			expected: http.StatusNotFound,
		},
		{
			name:     "AlreadyConfigured",
			err:      interview.ErrAlreadyConfigured,
			expected: http.StatusConflict,
		},
		{
			name:     "SessionClosed",
			err:      interview.ErrSessionClosed,
			expected: http.StatusGone,
		},
		{
			name:     "UploadTooLarge",
			err:      &ErrUploadTooLarge{Limit: 10},
			expected: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "MaxBytesError",
			err:      &http.MaxBytesError{Limit: 10},
			expected: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "Unknown error",
			err:      errors.New("unknown"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Invalid session. Please reconnect.",
		userMessage(&interview.SessionNotFoundError{ClientID: "c1"}))
	assert.Equal(t, "Interview is already set up for this session.",
		userMessage(interview.ErrAlreadyConfigured))
	assert.Equal(t, setupFailedMessage, userMessage(errors.New("boom")))
}

func TestUserMessage_HidesInternalErrors(t *testing.T) {
	for _, err := range []error{
		context.Canceled,
		fmt.Errorf("read upload: %w", errors.New("unexpected EOF")),
		&interview.GenerationError{Phase: interview.PhaseBehavioral, Cause: errors.New("quota exceeded")},
	} {
		msg := userMessage(err)
		assert.Equal(t, setupFailedMessage, msg)
		assert.NotContains(t, msg, err.Error())
	}
}

package interview

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when a turn finishes after its session was removed.
var ErrSessionClosed = errors.New("session closed")

// ErrAlreadyConfigured is returned when setup runs twice for one session.
var ErrAlreadyConfigured = errors.New("interview already configured")

// SessionNotFoundError indicates no session exists for a client id
type SessionNotFoundError struct {
	ClientID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found for client %q", e.ClientID)
}

// GenerationError wraps a failed or timed out generation call
type GenerationError struct {
	Phase Phase
	Cause error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed in phase %s: %v", e.Phase, e.Cause)
	}
	return fmt.Sprintf("generation failed in phase %s", e.Phase)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// UnknownPhaseError indicates a phase name that does not exist
type UnknownPhaseError struct {
	Value string
}

func (e *UnknownPhaseError) Error() string {
	return fmt.Sprintf("unknown interview phase %q", e.Value)
}

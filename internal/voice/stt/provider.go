// Package stt provides speech-to-text for candidate utterances.
package stt

import (
	"context"
	"fmt"
	"io"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts one recorded utterance to text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model    string // Provider-specific model (default: "whisper-large-v3")
	Language string // ISO language code, empty lets the provider detect it
	Filename string // Upload name; its extension is the format hint (default: "audio.webm")
	Prompt   string // Optional spelling hints such as the candidate's skills
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string  // Full transcribed text
	Language string  // Detected or specified language
	Duration float64 // Audio duration in seconds
}

// TranscriptionError indicates the audio could not be transcribed.
type TranscriptionError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TranscriptionError) Error() string {
	msg := fmt.Sprintf("%s transcription failed", e.Provider)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}

// Package tts provides text-to-speech for interviewer replies.
package tts

import (
	"context"
	"fmt"
	"sync"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// SynthesizeStream converts text to audio delivered in chunks as the
	// provider produces them.
	SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice        string // Voice identifier
	Model        string // Provider model (default: "eleven_multilingual_v2")
	OutputFormat string // Provider output format (default: "mp3_44100_128")
}

// SynthesisError indicates text could not be converted to audio.
type SynthesisError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("%s synthesis failed", e.Provider)
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

func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// SynthesisStream provides streaming audio output.
//
// Producers call Send for each chunk, SetError on failure and FinishSending
// when done. Consumers range over Chunks and then check Err.
type SynthesisStream struct {
	chunks    chan []byte
	done      chan struct{}
	finished  chan struct{}
	errMu     sync.Mutex
	err       error
	closeOnce sync.Once
	finOnce   sync.Once
}

// NewSynthesisStream creates a new synthesis stream.
func NewSynthesisStream() *SynthesisStream {
	return &SynthesisStream{
		chunks:   make(chan []byte, 32),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err waits for the producer to finish and returns any error it reported.
func (s *SynthesisStream) Err() error {
	<-s.finished
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close tells the producer to stop. Safe to call more than once.
func (s *SynthesisStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// SetError records the stream error.
func (s *SynthesisStream) SetError(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Send sends a chunk to the stream. Returns false if the stream is closed.
func (s *SynthesisStream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// Done is closed when the consumer closes the stream.
func (s *SynthesisStream) Done() <-chan struct{} {
	return s.done
}

// FinishSending closes the chunks channel to signal completion.
func (s *SynthesisStream) FinishSending() {
	s.finOnce.Do(func() {
		close(s.chunks)
		close(s.finished)
	})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/mock-interviewer/internal/interview"
	"github.com/jonathan/mock-interviewer/internal/metrics"
	"github.com/jonathan/mock-interviewer/internal/schemas"
	"github.com/jonathan/mock-interviewer/internal/voice/stt"
	"github.com/jonathan/mock-interviewer/internal/voice/tts"
)

// Outbound frame types
const (
	frameTranscript = "transcript"
	framePhase      = "phase"
	frameError      = "error"
	framePong       = "pong"
)

const (
	candidatePrefix   = "You: "
	interviewerPrefix = "Alex: "

	speechUnavailable = "Audio is unavailable for this reply."
	invalidMessage    = "Invalid message."
	invalidSession    = "Invalid session. Please reconnect."
)

var errConnClosed = errors.New("connection closed")

type outboundFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// inbound is one candidate utterance, either recorded audio or typed text.
type inbound struct {
	audio []byte
	text  string
	typed bool
}

// ConnOptions configures a WebSocket connection.
type ConnOptions struct {
	WriteTimeout    time.Duration
	STTTimeout      time.Duration
	TTSTimeout      time.Duration
	MaxMessageBytes int64
	Transcribe      stt.TranscribeOptions
	Synthesize      tts.SynthesizeOptions
}

// DefaultConnOptions returns the options used for zero fields.
func DefaultConnOptions() ConnOptions {
	return ConnOptions{
		WriteTimeout:    10 * time.Second,
		STTTimeout:      30 * time.Second,
		TTSTimeout:      30 * time.Second,
		MaxMessageBytes: 25 << 20,
	}
}

func (o ConnOptions) withDefaults() ConnOptions {
	d := DefaultConnOptions()
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.STTTimeout <= 0 {
		o.STTTimeout = d.STTTimeout
	}
	if o.TTSTimeout <= 0 {
		o.TTSTimeout = d.TTSTimeout
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	return o
}

// Conn is one client's WebSocket. Three goroutines serve it: the reader
// decodes frames, the turn loop runs utterances one at a time and the
// speaker voices results in the order they were delivered.
type Conn struct {
	clientID    string
	ws          *websocket.Conn
	interviewer Interviewer
	stt         stt.Provider
	tts         tts.Provider
	opts        ConnOptions
	logger      *zap.Logger
	metrics     *metrics.Metrics

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	inbox     chan inbound
	speech    chan interview.TurnResult
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(clientID string, ws *websocket.Conn, s *Server) *Conn {
	opts := s.connOpts
	ws.SetReadLimit(opts.MaxMessageBytes)
	return &Conn{
		clientID:    clientID,
		ws:          ws,
		interviewer: s.interviewer,
		stt:         s.stt,
		tts:         s.tts,
		opts:        opts,
		logger:      s.logger.With(zap.String("client_id", clientID)),
		metrics:     s.metrics,
		inbox:       make(chan inbound, 4),
		speech:      make(chan interview.TurnResult, 16),
		closed:      make(chan struct{}),
	}
}

// Deliver queues a turn result to be spoken. It reports false when the
// connection closed first.
func (c *Conn) Deliver(result interview.TurnResult) bool {
	if len(result.Replies) == 0 && !result.Transitioned {
		return true
	}
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.speech <- result:
		return true
	case <-c.closed:
		return false
	}
}

// Run serves the connection until the client leaves or ctx ends.
func (c *Conn) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.turnLoop(gctx) })
	g.Go(func() error { return c.speakLoop(gctx) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-c.closed:
		}
		c.Close()
		return errConnClosed
	})

	err := g.Wait()
	if errors.Is(err, errConnClosed) || errors.Is(err, context.Canceled) || c.isClosed() {
		return nil
	}
	return err
}

// Close sends a close frame and tears down the socket. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.ws.Close()
	})
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				c.logger.Debug("websocket read ended", zap.Error(err))
			}
			return errConnClosed
		}

		var item inbound
		switch messageType {
		case websocket.BinaryMessage:
			item = inbound{audio: data}
		case websocket.TextMessage:
			msg, err := schemas.ParseClientMessage(data)
			if err != nil {
				c.logger.Warn("invalid client message", zap.Error(err))
				if err := c.writeJSON(frameError, invalidMessage); err != nil {
					return err
				}
				continue
			}
			if msg.Type == schemas.MessagePing {
				if err := c.writeJSON(framePong, ""); err != nil {
					return err
				}
				continue
			}
			item = inbound{text: msg.Text, typed: true}
		default:
			continue
		}

		select {
		case c.inbox <- item:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) turnLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-c.inbox:
			if err := c.handleInbound(ctx, item); err != nil {
				return err
			}
		}
	}
}

func (c *Conn) handleInbound(ctx context.Context, item inbound) error {
	text := item.text
	if !item.typed {
		transcript, err := c.transcribe(ctx, item.audio)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.RecordUpstreamFailure(metrics.CapabilitySTT)
			c.logger.Warn("transcription failed", zap.Error(err))
			c.Deliver(apology())
			return nil
		}
		text = transcript
	}

	if err := c.writeJSON(frameTranscript, candidatePrefix+text); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	result, err := c.interviewer.HandleUtterance(ctx, c.clientID, text)
	if err != nil {
		var notFound *interview.SessionNotFoundError
		switch {
		case errors.As(err, &notFound):
			_ = c.writeJSON(frameError, invalidSession)
			return errConnClosed
		case errors.Is(err, interview.ErrSessionClosed):
			return errConnClosed
		default:
			return fmt.Errorf("handle utterance: %w", err)
		}
	}
	c.Deliver(result)
	return nil
}

func (c *Conn) transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.stt == nil {
		return "", errors.New("speech-to-text is not configured")
	}

	opts := c.opts.Transcribe
	// Skills make good spelling hints for technical vocabulary
	if state, ok := c.interviewer.Session(c.clientID); ok && len(state.Skills) > 0 && opts.Prompt == "" {
		opts.Prompt = strings.Join(state.Skills, ", ")
	}

	sttCtx, cancel := context.WithTimeout(ctx, c.opts.STTTimeout)
	defer cancel()

	transcript, err := c.stt.Transcribe(sttCtx, bytes.NewReader(audio), opts)
	if err != nil {
		return "", err
	}
	return transcript.Text, nil
}

func (c *Conn) speakLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result := <-c.speech:
			if err := c.speak(ctx, result); err != nil {
				return err
			}
		}
	}
}

// speak voices one turn result. The phase frame goes first so the client
// can update before the transition line plays.
func (c *Conn) speak(ctx context.Context, result interview.TurnResult) error {
	if result.Transitioned {
		if err := c.writeJSON(framePhase, result.Phase.String()); err != nil {
			return err
		}
	}
	for _, reply := range result.Replies {
		if err := c.writeJSON(frameTranscript, interviewerPrefix+reply.Text); err != nil {
			return err
		}
		if err := c.streamSpeech(ctx, reply.Text); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) streamSpeech(ctx context.Context, text string) error {
	if c.tts == nil {
		return nil
	}

	ttsCtx, cancel := context.WithTimeout(ctx, c.opts.TTSTimeout)
	defer cancel()

	stream, err := c.tts.SynthesizeStream(ttsCtx, text, c.opts.Synthesize)
	if err != nil {
		return c.speechFailed(ctx, err)
	}
	defer stream.Close()

	for chunk := range stream.Chunks() {
		if err := c.write(websocket.BinaryMessage, chunk); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return c.speechFailed(ctx, err)
	}
	return nil
}

// speechFailed reports a synthesis failure to the client. The transcript
// frame has already been sent, so the turn itself is not lost.
func (c *Conn) speechFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.metrics.RecordUpstreamFailure(metrics.CapabilityTTS)
	c.logger.Warn("speech synthesis failed", zap.Error(err))
	return c.writeJSON(frameError, speechUnavailable)
}

func (c *Conn) writeJSON(frameType, data string) error {
	payload, err := json.Marshal(outboundFrame{Type: frameType, Data: data})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return errConnClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func apology() interview.TurnResult {
	return interview.TurnResult{
		Replies: []interview.Reply{{Kind: interview.ReplyError, Text: interview.ApologyMessage}},
	}
}

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
	elevenLabsDefaultModel   = "eleven_multilingual_v2"
	elevenLabsDefaultFormat  = "mp3_44100_128"
	elevenLabsChunkSize      = 4096
	elevenLabsMaxErrorBody   = 4 << 10
)

// ElevenLabsProvider streams speech from the ElevenLabs HTTP API.
type ElevenLabsProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	defaults   SynthesizeOptions
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return NewElevenLabsWithClient(apiKey, nil)
}

// NewElevenLabsWithClient creates a provider using the given HTTP client.
func NewElevenLabsWithClient(apiKey string, client *http.Client) *ElevenLabsProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
		baseURL:    elevenLabsDefaultBaseURL,
		defaults: SynthesizeOptions{
			Model:        elevenLabsDefaultModel,
			OutputFormat: elevenLabsDefaultFormat,
		},
	}
}

// WithBaseURL overrides the API host.
func (e *ElevenLabsProvider) WithBaseURL(base string) *ElevenLabsProvider {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" {
		e.baseURL = base
	}
	return e
}

// WithDefaults sets options used when a call leaves them empty.
func (e *ElevenLabsProvider) WithDefaults(opts SynthesizeOptions) *ElevenLabsProvider {
	if opts.Voice != "" {
		e.defaults.Voice = opts.Voice
	}
	if opts.Model != "" {
		e.defaults.Model = opts.Model
	}
	if opts.OutputFormat != "" {
		e.defaults.OutputFormat = opts.OutputFormat
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// SynthesizeStream starts synthesis and returns once the response headers
// arrive. Audio is read in fixed-size chunks on a background goroutine.
func (e *ElevenLabsProvider) SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error) {
	if e.apiKey == "" {
		return nil, &SynthesisError{Provider: e.Name(), Message: "api key is required"}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &SynthesisError{Provider: e.Name(), Message: "text is empty"}
	}
	opts = e.resolve(opts)
	if opts.Voice == "" {
		return nil, &SynthesisError{Provider: e.Name(), Message: "voice id is required"}
	}

	payload, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: opts.Model})
	if err != nil {
		return nil, &SynthesisError{Provider: e.Name(), Message: "encode request", Cause: err}
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(opts.Voice) + "/stream?output_format=" + url.QueryEscape(opts.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &SynthesisError{Provider: e.Name(), Message: "create request", Cause: err}
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{Provider: e.Name(), Message: "request failed", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, elevenLabsMaxErrorBody))
		return nil, &SynthesisError{Provider: e.Name(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	stream := NewSynthesisStream()
	go e.pump(resp.Body, stream)
	return stream, nil
}

func (e *ElevenLabsProvider) pump(body io.ReadCloser, stream *SynthesisStream) {
	defer stream.FinishSending()
	defer func() { _ = body.Close() }()

	buf := make([]byte, elevenLabsChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !stream.Send(chunk) {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			stream.SetError(&SynthesisError{Provider: e.Name(), Message: "read audio", Cause: err})
			return
		}
	}
}

func (e *ElevenLabsProvider) resolve(opts SynthesizeOptions) SynthesizeOptions {
	if opts.Voice == "" {
		opts.Voice = e.defaults.Voice
	}
	if opts.Model == "" {
		opts.Model = e.defaults.Model
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = e.defaults.OutputFormat
	}
	return opts
}

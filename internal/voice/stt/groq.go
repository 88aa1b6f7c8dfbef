package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "whisper-large-v3"
	groqMaxErrorBody   = 4 << 10
)

// GroqProvider transcribes audio with Groq's hosted Whisper models.
type GroqProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewGroq creates a Groq Whisper provider.
func NewGroq(apiKey string) *GroqProvider {
	return NewGroqWithClient(apiKey, nil)
}

// NewGroqWithClient creates a provider using the given HTTP client.
func NewGroqWithClient(apiKey string, client *http.Client) *GroqProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &GroqProvider{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
		baseURL:    groqDefaultBaseURL,
		model:      groqDefaultModel,
	}
}

// WithBaseURL points the provider at another OpenAI-compatible endpoint.
func (g *GroqProvider) WithBaseURL(base string) *GroqProvider {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" {
		g.baseURL = base
	}
	return g
}

// WithModel sets the default model used when options leave it empty.
func (g *GroqProvider) WithModel(model string) *GroqProvider {
	if model = strings.TrimSpace(model); model != "" {
		g.model = model
	}
	return g
}

func (g *GroqProvider) Name() string {
	return "groq"
}

type groqTranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GroqProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	if g.apiKey == "" {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "api key is required"}
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "read audio", Cause: err}
	}
	if len(data) == 0 {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "audio is empty"}
	}

	body, contentType, err := g.buildForm(data, opts)
	if err != nil {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "build request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, groqMaxErrorBody))
		message := strings.TrimSpace(string(raw))
		var apiErr groqErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &TranscriptionError{Provider: g.Name(), StatusCode: resp.StatusCode, Message: message}
	}

	var result groqTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TranscriptionError{Provider: g.Name(), Message: "parse response", Cause: err}
	}

	language := result.Language
	if language == "" {
		language = opts.Language
	}
	return &Transcript{
		Text:     strings.TrimSpace(result.Text),
		Language: language,
		Duration: result.Duration,
	}, nil
}

func (g *GroqProvider) buildForm(data []byte, opts TranscribeOptions) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := opts.Filename
	if filename == "" {
		filename = "audio.webm"
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	model := opts.Model
	if model == "" {
		model = g.model
	}
	fields := map[string]string{
		"model":           model,
		"response_format": "verbose_json",
		"language":        opts.Language,
		"prompt":          opts.Prompt,
	}
	for _, key := range []string{"model", "response_format", "language", "prompt"} {
		if fields[key] == "" {
			continue
		}
		if err := mw.WriteField(key, fields[key]); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

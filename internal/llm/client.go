package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Role identifies the author of a conversation message
type Role string

const (
	// RoleUser marks messages spoken by the candidate
	RoleUser Role = "user"
	// RoleModel marks messages produced by the interviewer
	RoleModel Role = "model"
)

// Message is one entry of a conversation history
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Generator produces the interviewer's next reply from system instructions,
// the full conversation so far, and the candidate's newest input.
type Generator interface {
	Generate(ctx context.Context, instructions string, history []Message, input string) (string, error)
	// Close releases any resources held by the generator
	Close() error
}

// NewGenerator creates a generator based on configuration
func NewGenerator(ctx context.Context, config *Config, apiKey string) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Generator for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate runs one chat turn. The history is replayed in order ahead of input.
func (c *GeminiClient) Generate(ctx context.Context, instructions string, history []Message, input string) (string, error) {
	modelName := c.config.GetModel(c.config.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", c.config.Tier)
	}
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("input is empty")
	}

	ctx, cancel := c.config.callContext(ctx)
	defer cancel()

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	if instructions != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instructions)}}
	}

	chat := model.StartChat()
	chat.History = toContents(history)

	resp, err := chat.SendMessage(ctx, genai.Text(input))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return PlainSpeech(text), nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// emptyTurn replaces blank message text, which the API rejects.
const emptyTurn = "..."

// toContents converts history to Gemini contents one to one so user and
// model turns keep alternating.
func toContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		text := msg.Text
		if strings.TrimSpace(text) == "" {
			text = emptyTurn
		}
		role := string(RoleUser)
		if msg.Role == RoleModel {
			role = string(RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}
	return contents
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

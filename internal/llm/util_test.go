package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainSpeech(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bold emphasis",
			input:    "1) **What you did well:** clear answers.",
			expected: "1) What you did well: clear answers.",
		},
		{
			name:     "heading and bullets",
			input:    "## Feedback\n- strong intro\n* good pacing",
			expected: "Feedback\nstrong intro\ngood pacing",
		},
		{
			name:     "code fence",
			input:    "Consider this:\n```python\nreturn x\n```",
			expected: "Consider this:\nreturn x",
		},
		{
			name:     "inline code",
			input:    "Use a `HashMap` here.",
			expected: "Use a HashMap here.",
		},
		{
			name:     "marker untouched",
			input:    "Thanks for sharing. [END_BEHAVIORAL]",
			expected: "Thanks for sharing. [END_BEHAVIORAL]",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlainSpeech(tt.input))
		})
	}
}

func TestToContents_PreservesOrderAndRoles(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Text: "Start the interview now."},
		{Role: RoleModel, Text: "Tell me about yourself."},
		{Role: RoleUser, Text: "I build backends."},
		{Role: RoleModel, Text: "[END_BEHAVIORAL]"},
	}

	contents := toContents(history)
	require.Len(t, contents, 4)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, genai.Text("Start the interview now."), contents[0].Parts[0])
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, genai.Text("Tell me about yourself."), contents[1].Parts[0])
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "model", contents[3].Role)
	assert.Equal(t, genai.Text("[END_BEHAVIORAL]"), contents[3].Parts[0])
}

func TestToContents_KeepsBlankMessages(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Text: "O(n)"},
		{Role: RoleModel, Text: "  "},
		{Role: RoleUser, Text: "Any questions?"},
		{Role: RoleModel, Text: "None."},
	}

	contents := toContents(history)
	require.Len(t, contents, 4)

	roles := make([]string, 0, len(contents))
	for _, c := range contents {
		roles = append(roles, c.Role)
	}
	assert.Equal(t, []string{"user", "model", "user", "model"}, roles)
	assert.Equal(t, genai.Text(emptyTurn), contents[1].Parts[0])
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("Good point. "), genai.Text("[END_TECHNICAL]")},
				},
			},
		},
	}

	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Good point. [END_TECHNICAL]", text)
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.Error(t, err)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), DefaultConfig(), "")
	assert.Error(t, err)
}

func TestNewGenerator_UnsupportedProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "unknown"
	_, err := NewGenerator(t.Context(), cfg, "key")
	assert.Error(t, err)
}

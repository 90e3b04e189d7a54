package llm

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	messages := []Message{
		SystemPrompt("You are a travel planner."),
		UserMessage("Find flights to Tokyo."),
		{Role: "assistant", Content: "Here are three options."},
		{Role: "bogus", Content: "falls back to user"},
	}

	converted := convertMessages(messages)
	require.Len(t, converted, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, converted[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, converted[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, converted[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, converted[3].Role)
	assert.Equal(t, "Find flights to Tokyo.", converted[1].Content)
}

func TestNewServiceDefaults(t *testing.T) {
	svc, err := NewService(&Config{Provider: "gemini", Model: "gemini-flash-latest", APIKey: "k"})
	require.NoError(t, err)

	s, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, 2048, s.maxTokens)
	assert.InDelta(t, 0.7, float64(s.temperature), 1e-6)
	assert.Equal(t, 120, s.timeout)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.deepseek.com", defaultBaseURL("", "https://api.deepseek.com"))
	assert.Equal(t, "http://proxy:8080", defaultBaseURL("http://proxy:8080", "https://api.deepseek.com"))
}

// Package llm wraps the OpenAI-compatible chat completion API used to
// generate travel recommendations.
package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/tripsense/ai/observability/logging"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats carries token usage and timing for a single LLM call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the LLM chat interface consumed by the serving layer.
type Service interface {
	// Chat performs a synchronous chat completion.
	Chat(ctx context.Context, messages []Message) (string, *CallStats, error)

	// Warmup sends a lightweight ping to establish the connection early.
	Warmup(ctx context.Context)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // gemini, openai, deepseek, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 120)
}

type service struct {
	client      *openai.Client
	logger      *logging.Logger
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a Service for any OpenAI-compatible provider. Unknown
// providers fall through to the generic OpenAI wire protocol with whatever
// base URL was configured.
func NewService(cfg *Config) (Service, error) {
	httpClient := newHTTPClient()
	logger := logging.FromContext(context.Background()).WithField("component", "llm")

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	switch cfg.Provider {
	case "gemini":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL,
			"https://generativelanguage.googleapis.com/v1beta/openai")
	case "deepseek":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://api.deepseek.com")
	case "ollama":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "http://localhost:11434/v1")
	case "openai":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	default:
		logger.Info("using generic OpenAI-compatible provider", "provider", cfg.Provider)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		logger:      logger,
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func defaultBaseURL(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	s.logger.Debug("chat request",
		"model", s.model,
		"messages_count", len(messages),
		"max_tokens", s.maxTokens,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Error("chat request failed", "error", err.Error())
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("empty response from LLM")
	}

	totalDuration := time.Since(startTime)
	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  totalDuration.Milliseconds(),
	}

	s.logger.Debug("chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", totalDuration.Milliseconds(),
	)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	startTime := time.Now()
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}
	_, err := s.client.CreateChatCompletion(warmupCtx, req)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Warn("warmup ping failed, first request may be slower",
			"provider", s.provider,
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}
	s.logger.Info("warmup complete",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", duration.Milliseconds(),
	)
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Package tokenizer counts prompt and response tokens for usage and cost
// tracking.
package tokenizer

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hrygo/tripsense/ai/observability/logging"
)

const defaultEncoding = "cl100k_base"

// Usage breaks one prompt/response pair into token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Counter counts tokens with a tiktoken encoding, falling back to a
// word-based estimate when the encoding is unavailable.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter loads the cl100k_base encoding. A load failure is logged and
// degrades to the word-based estimate, never an error.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		logging.FromContext(context.Background()).Warn(
			"tiktoken encoding unavailable, using word-based estimate",
			"encoding", defaultEncoding, "error", err.Error())
		return &Counter{}
	}
	return &Counter{encoding: enc}
}

// CountTokens counts the tokens in text. Empty text counts zero.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	// Rough estimate: 1 token per 0.75 words.
	return int(float64(len(strings.Fields(text))) / 0.75)
}

// CountUsage counts both sides of an exchange.
func (c *Counter) CountUsage(prompt, response string) Usage {
	promptTokens := c.CountTokens(prompt)
	completionTokens := c.CountTokens(response)
	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

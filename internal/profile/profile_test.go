package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("TRIPSENSE_LLM_PROVIDER", "")
	t.Setenv("TRIPSENSE_LLM_API_KEY", "")
	t.Setenv("TRIPSENSE_LLM_BASE_URL", "")
	t.Setenv("TRIPSENSE_LLM_MODEL", "")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "gemini", p.LLMProvider)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/openai", p.LLMBaseURL)
	assert.Equal(t, "gemini-flash-latest", p.LLMModel)
	assert.Equal(t, 120, p.LLMTimeout)
	assert.Equal(t, 2048, p.LLMMaxTokens)
	assert.InDelta(t, 0.3, p.LLMTemperature, 1e-9)
	assert.Equal(t, 50, p.ExampleCacheSize)
	assert.False(t, p.IsLLMEnabled())
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	t.Setenv("TRIPSENSE_LLM_PROVIDER", "does-not-exist")
	t.Setenv("TRIPSENSE_LLM_BASE_URL", "")
	t.Setenv("TRIPSENSE_LLM_MODEL", "")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "gemini", p.LLMProvider)
}

func TestValidate(t *testing.T) {
	t.Run("normalizes mode and driver", func(t *testing.T) {
		p := &Profile{Mode: "bogus", Driver: "bogus", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.Equal(t, "sqlite", p.Driver)
		assert.Contains(t, p.DSN, "tripsense_demo.db")
	})

	t.Run("file driver needs no DSN", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "file", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Empty(t, p.DSN)
	})

	t.Run("missing data dir fails", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: "/definitely/not/a/dir"}
		assert.Error(t, p.Validate())
	})
}

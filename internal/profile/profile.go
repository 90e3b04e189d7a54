// Package profile holds the runtime configuration for the tripsense server.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (gemini, openai, deepseek, ollama) use the same config.
	LLMProvider string // Provider identifier: gemini, openai, deepseek, ollama
	LLMAPIKey   string // LLM API key
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gemini-flash-latest, gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	LLMMaxTokens   int     // Max output tokens per completion (default: 2048)
	LLMTemperature float64 // Sampling temperature (default: 0.3)

	// Few-shot example cache tuning.
	ExampleCacheSize int // Max cached fingerprints (default: 50)

	Mode        string // "prod", "dev" or "demo"
	Addr        string
	Port        int
	Data        string // data directory for durable documents
	Driver      string // "sqlite" or "file"
	DSN         string
	Version     string
	InstanceURL string
}

// Provider default configurations for the LLM.
// Used when LLM_BASE_URL or LLM_MODEL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"gemini": {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-flash-latest",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM API key is configured.
// Ollama runs locally and needs no key.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("TRIPSENSE_LLM_PROVIDER", "gemini")
	p.LLMAPIKey = getEnvOrDefault("TRIPSENSE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TRIPSENSE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TRIPSENSE_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TRIPSENSE_LLM_TIMEOUT_SECONDS", 120)
	p.LLMMaxTokens = getEnvOrDefaultInt("TRIPSENSE_LLM_MAX_TOKENS", 2048)
	p.LLMTemperature = getEnvOrDefaultFloat("TRIPSENSE_LLM_TEMPERATURE", 0.3)

	p.ExampleCacheSize = getEnvOrDefaultInt("TRIPSENSE_EXAMPLE_CACHE_SIZE", 50)

	// Validate and apply provider defaults if not explicitly set.
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: gemini", "provider", p.LLMProvider)
			p.LLMProvider = "gemini"
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and resolves the data directory and DSN.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "file" {
		p.Driver = "sqlite"
	}

	if p.ExampleCacheSize <= 0 {
		p.ExampleCacheSize = 50
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "tripsense")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/tripsense"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("tripsense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}

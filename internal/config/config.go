package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Inference InferenceConfig
	Database  DatabaseConfig
	Web       WebConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	Recommend RecommendConfig
}

type InferenceConfig struct {
	BaseURL string        // emotion inference API base (default http://127.0.0.1:8000)
	Timeout time.Duration // per-request timeout (default 60s)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host          string // bind address (default empty, all interfaces)
	Port          int    // listen port (default 8080)
	SessionSecret string // HMAC key for session cookies
	SessionTTL    time.Duration
}

type OpenAIConfig struct {
	Token string
	Model string // defaults to gpt-4.1-mini
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2:3b
}

type RecommendConfig struct {
	// Provider selects the recommendation backend: "openai", "gemini",
	// "ollama" or "static" (the built-in catalog, no API calls).
	Provider string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Inference: InferenceConfig{
			BaseURL: envOr("INFERENCE_API_BASE", "http://127.0.0.1:8000"),
			Timeout: time.Duration(envInt("INFERENCE_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host:          os.Getenv("WEB_HOST"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("SESSION_SECRET"),
			SessionTTL:    time.Duration(envInt("SESSION_TTL_HOURS", 24*7)) * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
			Model: envOr("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Recommend: RecommendConfig{
			Provider: envOr("RECOMMEND_PROVIDER", "static"),
		},
	}
}

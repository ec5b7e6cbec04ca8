package model

import "time"

// ================ Config ================
type LLMConfig struct {
	Provider    string        `envconfig:"LLM_PROVIDER" default:"openai"`
	Model       string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	Temperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	OpenAI OpenAIConfig
	Gemini GeminiConfig
}

type OpenAIConfig struct {
	APIKey     string `envconfig:"OPENAI_API_KEY"`
	BaseURL    string `envconfig:"OPENAI_BASE_URL"`
	APIVersion string `envconfig:"OPENAI_API_VERSION"`
	ByAzure    bool   `envconfig:"OPENAI_BY_AZURE" default:"false"`
}

type GeminiConfig struct {
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
}

type TranscriptConfig struct {
	TTL      time.Duration `envconfig:"TRANSCRIPT_TTL" default:"24h"`
	MaxTurns int           `envconfig:"TRANSCRIPT_MAX_TURNS" default:"50"`
}

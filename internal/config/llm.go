package config

import (
	"time"

	"calltriage/pkg/llm"
)

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	Model       string        `yaml:"model" validate:"required"`
	Temperature float32       `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"min=1"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=1"`
}

func loadLLMConfig() *LLMConfig {
	return &LLMConfig{
		APIKey:      getEnv("GROQ_API_KEY", ""),
		BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:       getEnv("LLM_MODEL", "openai/gpt-oss-20b"),
		Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
		MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 2000),
		Timeout:     getEnvAsDuration("LLM_TIMEOUT", 25*time.Second),
	}
}

func (l *LLMConfig) ProviderConfig(systemPrompt string) llm.OpenAIConfig {
	return llm.OpenAIConfig{
		APIKey:       l.APIKey,
		BaseURL:      l.BaseURL,
		Model:        l.Model,
		SystemPrompt: systemPrompt,
		Temperature:  l.Temperature,
		MaxTokens:    l.MaxTokens,
		Timeout:      l.Timeout,
	}
}

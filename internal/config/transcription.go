package config

import (
	"time"
)

type TranscriptionConfig struct {
	URL         string        `yaml:"url" validate:"required,url"`
	AnalysisURL string        `yaml:"analysis_url" validate:"required,url"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=1"`
	SkipSeconds int           `yaml:"skip_seconds" validate:"min=0"`
}

func loadTranscriptionConfig() *TranscriptionConfig {
	return &TranscriptionConfig{
		URL:         getEnv("TRANSCRIPTION_URL", "http://localhost:8000/transcribe"),
		AnalysisURL: getEnv("ANALYSIS_URL", "http://localhost:3000/api/v1/analyze-emergency"),
		Timeout:     getEnvAsDuration("TRANSCRIPTION_TIMEOUT", 30*time.Second),
		SkipSeconds: getEnvAsInt("TRANSCRIPTION_SKIP_SECONDS", 8),
	}
}

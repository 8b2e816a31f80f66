package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"calltriage/internal/validators"

	"github.com/joho/godotenv"
)

type Config struct {
	App           *AppConfig           `yaml:"app" validate:"required"`
	Redis         *RedisConfig         `yaml:"redis" validate:"required"`
	LLM           *LLMConfig           `yaml:"llm" validate:"required"`
	Telephony     *TelephonyConfig     `yaml:"telephony" validate:"required"`
	Transcription *TranscriptionConfig `yaml:"transcription" validate:"required"`
	Logger        *LoggerConfig        `yaml:"logger" validate:"required"`
	WebSocket     *WebSocketConfig     `yaml:"websocket" validate:"required"`
	Alerts        *AlertConfig         `yaml:"alerts" validate:"required"`
}

type AppConfig struct {
	Name               string        `yaml:"name"`
	Version            string        `yaml:"version"`
	Environment        string        `yaml:"environment"`
	Port               int           `yaml:"port" validate:"min=1,max=65535"`
	Host               string        `yaml:"host"`
	BaseURL            string        `yaml:"base_url" validate:"required,url"`
	Debug              bool          `yaml:"debug"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"min=1"`
	DefaultQueryLimit  int           `yaml:"default_query_limit" validate:"min=1"`
	MaxQueryLimit      int           `yaml:"max_query_limit" validate:"min=1"`
	RateLimit          string        `yaml:"rate_limit"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RecordCacheSize    int           `yaml:"record_cache_size" validate:"min=0"`
	StatsSchedule      string        `yaml:"stats_schedule"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configuration from the environment. A .env file in the working
// directory, or the files named in files, is loaded first when present;
// variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	config := &Config{
		App:           loadAppConfig(),
		Redis:         loadRedisConfig(),
		LLM:           loadLLMConfig(),
		Telephony:     loadTelephonyConfig(),
		Transcription: loadTranscriptionConfig(),
		Logger:        loadLoggerConfig(),
		WebSocket:     loadWebSocketConfig(),
		Alerts:        loadAlertConfig(),
	}

	if errs := validators.ValidateStruct(config); errs != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}
	if config.App.DefaultQueryLimit > config.App.MaxQueryLimit {
		return nil, fmt.Errorf("%w: default query limit %d exceeds max %d",
			ErrInvalidConfig, config.App.DefaultQueryLimit, config.App.MaxQueryLimit)
	}

	return config, nil
}

// ValidateServer checks what the API process needs beyond the defaults.
func (c *Config) ValidateServer() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: GROQ_API_KEY is required", ErrInvalidConfig)
	}
	return nil
}

// ValidateCaller checks what the telephony CLI needs beyond the defaults.
func (c *Config) ValidateCaller() error {
	if errs := validators.ValidateStruct(c.Telephony.Credentials()); errs != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}
	return nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:               getEnv("APP_NAME", "calltriage"),
		Version:            getEnv("APP_VERSION", "1.0.0"),
		Environment:        getEnv("APP_ENV", "development"),
		Port:               getEnvAsInt("APP_PORT", 3000),
		Host:               getEnv("APP_HOST", "0.0.0.0"),
		BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		Debug:              getEnvAsBool("APP_DEBUG", false),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		DefaultQueryLimit:  getEnvAsInt("DEFAULT_QUERY_LIMIT", 10),
		MaxQueryLimit:      getEnvAsInt("MAX_QUERY_LIMIT", 100),
		RateLimit:          getEnv("ANALYZE_RATE_LIMIT", "120-M"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RecordCacheSize:    getEnvAsInt("RECORD_CACHE_SIZE", 1024),
		StatsSchedule:      getEnv("STATS_SCHEDULE", "@every 1m"),
	}
}

func (a *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}

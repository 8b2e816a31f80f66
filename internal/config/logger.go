package config

import (
	"calltriage/pkg/logger"
)

type LoggerConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error fatal panic"`
	Format     string `yaml:"format" validate:"oneof=json text"`
	Output     string `yaml:"output"`
	Caller     bool   `yaml:"caller"`
	Colors     bool   `yaml:"colors"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func loadLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "json"),
		Output:     getEnv("LOG_OUTPUT", "stdout"),
		Caller:     getEnvAsBool("LOG_CALLER", false),
		Colors:     getEnvAsBool("LOG_COLORS", false),
		MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
	}
}

func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.LogLevel(c.Logger.Level),
		Format:     c.Logger.Format,
		Output:     c.Logger.Output,
		Caller:     c.Logger.Caller,
		Colors:     c.Logger.Colors,
		AppName:    c.App.Name,
		Version:    c.App.Version,
		MaxSizeMB:  c.Logger.MaxSizeMB,
		MaxBackups: c.Logger.MaxBackups,
		MaxAgeDays: c.Logger.MaxAgeDays,
		Compress:   true,
	}
}

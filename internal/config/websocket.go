package config

import (
	"time"

	"calltriage/pkg/websocket"
)

type WebSocketConfig struct {
	ReadBufferSize   int           `yaml:"read_buffer_size" validate:"min=0"`
	WriteBufferSize  int           `yaml:"write_buffer_size" validate:"min=0"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	MaxConnections   int           `yaml:"max_connections" validate:"min=0"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		ReadBufferSize:   getEnvAsInt("WEBSOCKET_READ_BUFFER_SIZE", 1024),
		WriteBufferSize:  getEnvAsInt("WEBSOCKET_WRITE_BUFFER_SIZE", 1024),
		HandshakeTimeout: getEnvAsDuration("WEBSOCKET_HANDSHAKE_TIMEOUT", 10*time.Second),
		MaxConnections:   getEnvAsInt("WEBSOCKET_MAX_CONNECTIONS", 1000),
		AllowedOrigins:   getEnvAsSlice("WEBSOCKET_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func (w *WebSocketConfig) HandlerConfig() websocket.Config {
	return websocket.Config{
		ReadBufferSize:   w.ReadBufferSize,
		WriteBufferSize:  w.WriteBufferSize,
		HandshakeTimeout: w.HandshakeTimeout,
		MaxConnections:   w.MaxConnections,
		AllowedOrigins:   w.AllowedOrigins,
	}
}

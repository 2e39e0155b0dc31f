package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relayforge/realtime/internal/auth"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Auth    AuthConfig    `yaml:"auth"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GatewayConfig struct {
	// EventQueueSize bounds the event source notification queue.
	EventQueueSize int `yaml:"event_queue_size"`
	// SendBufferSize bounds each connection's outbound queue; a connection
	// that falls this far behind is disconnected.
	SendBufferSize int `yaml:"send_buffer_size"`
	// ReadLimit caps inbound frame size in bytes. Zero disables the cap.
	ReadLimit int64 `yaml:"read_limit"`
}

type AuthConfig struct {
	// Tokens maps bearer credentials to the identity they assert.
	Tokens map[string]auth.Claims `yaml:"tokens"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Gateway: GatewayConfig{
			EventQueueSize: 256,
			SendBufferSize: 64,
			ReadLimit:      1 << 16,
		},
	}
}

// Package config provides hierarchical configuration loading for SelfAI.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the SelfAI workflow service.
type Config struct {
	Server     Server     `yaml:"server"`
	ContentAPI ContentAPI `yaml:"content_api"`
	NATS       NATS       `yaml:"nats"`
	Store      Store      `yaml:"store"`
	Cache      Cache      `yaml:"cache"`
	Logging    Logging    `yaml:"logging"`
	Breaker    Breaker    `yaml:"breaker"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	MCP        MCP        `yaml:"mcp"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// ContentAPI holds the remote content generation backend configuration.
type ContentAPI struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// NATS holds NATS JetStream KV configuration. An empty URL selects the
// local file snapshot store instead.
type NATS struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// Store holds the local snapshot file configuration.
type Store struct {
	Path string `yaml:"path"`
}

// Cache holds the in-process generation cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for the content backend.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Telemetry holds OpenTelemetry export configuration. An empty endpoint
// disables export entirely.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Enabled  bool   `yaml:"enabled"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		ContentAPI: ContentAPI{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		NATS: NATS{
			Bucket: "selfai",
		},
		Store: Store{
			Path: "selfai-state.json",
		},
		Cache: Cache{
			MaxSizeMB: 16,
			TTL:       5 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "selfai-core",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Telemetry: Telemetry{
			Enabled: false,
		},
		MCP: MCP{
			Enabled: true,
			Addr:    ":3001",
		},
	}
}

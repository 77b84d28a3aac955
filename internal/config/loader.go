package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "selfai.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SELFAI_PORT")
	setString(&cfg.Server.CORSOrigin, "SELFAI_CORS_ORIGIN")
	setString(&cfg.ContentAPI.URL, "SELFAI_CONTENT_API_URL")
	setString(&cfg.ContentAPI.APIKey, "SELFAI_CONTENT_API_KEY")
	setDuration(&cfg.ContentAPI.Timeout, "SELFAI_CONTENT_API_TIMEOUT")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "SELFAI_NATS_BUCKET")
	setString(&cfg.Store.Path, "SELFAI_STORE_PATH")
	setInt64(&cfg.Cache.MaxSizeMB, "SELFAI_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "SELFAI_CACHE_TTL")
	setString(&cfg.Logging.Level, "SELFAI_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SELFAI_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SELFAI_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "SELFAI_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SELFAI_BREAKER_TIMEOUT")
	setString(&cfg.Telemetry.Endpoint, "SELFAI_OTEL_ENDPOINT")
	setBool(&cfg.Telemetry.Enabled, "SELFAI_OTEL_ENABLED")
	setBool(&cfg.MCP.Enabled, "SELFAI_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "SELFAI_MCP_ADDR")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.ContentAPI.URL == "" {
		return errors.New("content_api.url is required")
	}
	if cfg.ContentAPI.Timeout <= 0 {
		return errors.New("content_api.timeout must be positive")
	}
	if cfg.NATS.URL != "" && cfg.NATS.Bucket == "" {
		return errors.New("nats.bucket is required when nats.url is set")
	}
	if cfg.NATS.URL == "" && cfg.Store.Path == "" {
		return errors.New("store.path is required when nats.url is empty")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	if cfg.MCP.Enabled && cfg.MCP.Addr == "" {
		return errors.New("mcp.addr is required when mcp.enabled is true")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

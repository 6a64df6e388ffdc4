// Package config loads and validates the slipline.yml configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paydesk/slipline/internal/ingest"
)

// Default HTTP timeouts. Enrichment gets longer because it involves
// downstream ticket lookups.
const (
	DefaultGatewayTimeout  = 30 * time.Second
	DefaultEnricherTimeout = 60 * time.Second
)

// Config represents the top-level slipline.yml configuration.
type Config struct {
	Redis    RedisConfig    `yaml:"redis"`
	Account  AccountConfig  `yaml:"account"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Enricher EnricherConfig `yaml:"enricher"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// RedisConfig locates the state store backing service.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"` // key namespace prefix, may be empty
}

// AccountConfig identifies the chat account the pipeline acts as.
type AccountConfig struct {
	ID    string `yaml:"id"`
	Phone string `yaml:"phone"`
}

// GatewayConfig locates the MTProto gateway sidecar.
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // defaults to DefaultGatewayTimeout
}

// EnricherConfig locates the slip-processing service.
type EnricherConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // defaults to DefaultEnricherTimeout
}

// IngestConfig tunes the ingestion run.
type IngestConfig struct {
	Channels      []int64 `yaml:"channels"`
	TriggerPhrase string  `yaml:"trigger_phrase,omitempty"` // defaults to ingest.DefaultTriggerPhrase
	PageSize      int     `yaml:"page_size,omitempty"`      // defaults to ingest.DefaultPageSize
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if c.Account.ID == "" {
		return fmt.Errorf("account.id is required")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}

	if c.Enricher.BaseURL == "" {
		return fmt.Errorf("enricher.base_url is required")
	}

	if len(c.Ingest.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	seen := make(map[int64]bool, len(c.Ingest.Channels))
	for _, id := range c.Ingest.Channels {
		if id == 0 {
			return fmt.Errorf("channel ID cannot be zero")
		}
		if seen[id] {
			return fmt.Errorf("duplicate channel ID: %d", id)
		}
		seen[id] = true
	}

	if c.Ingest.PageSize < 0 {
		return fmt.Errorf("ingest.page_size cannot be negative")
	}

	if c.Gateway.TimeoutSeconds < 0 {
		return fmt.Errorf("gateway.timeout_seconds cannot be negative")
	}
	if c.Enricher.TimeoutSeconds < 0 {
		return fmt.Errorf("enricher.timeout_seconds cannot be negative")
	}

	return nil
}

// TriggerPhrase returns the configured trigger phrase or the default.
func (c *Config) TriggerPhrase() string {
	if c.Ingest.TriggerPhrase != "" {
		return c.Ingest.TriggerPhrase
	}
	return ingest.DefaultTriggerPhrase
}

// PageSize returns the configured page size or the default.
func (c *Config) PageSize() int {
	if c.Ingest.PageSize > 0 {
		return c.Ingest.PageSize
	}
	return ingest.DefaultPageSize
}

// GatewayTimeout returns the configured gateway HTTP timeout or the
// default.
func (c *Config) GatewayTimeout() time.Duration {
	if c.Gateway.TimeoutSeconds > 0 {
		return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
	}
	return DefaultGatewayTimeout
}

// EnricherTimeout returns the configured enrichment HTTP timeout or the
// default.
func (c *Config) EnricherTimeout() time.Duration {
	if c.Enricher.TimeoutSeconds > 0 {
		return time.Duration(c.Enricher.TimeoutSeconds) * time.Second
	}
	return DefaultEnricherTimeout
}

// Load reads, parses and validates a slipline.yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

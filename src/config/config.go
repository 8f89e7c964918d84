// Package config loads agent settings from a YAML file, the environment and
// built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
)

// DefaultModel is used when neither the file nor the environment names one.
const DefaultModel = "claude-3-5-sonnet-latest"

// ConfigError reports an unreadable or invalid configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the root configuration of cursor-agent.
type Config struct {
	Model             string   `yaml:"model"`
	Host              string   `yaml:"host,omitempty"`
	APIKey            string   `yaml:"api_key,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxTokens         int      `yaml:"max_tokens,omitempty"`
	SystemPrompt      string   `yaml:"system_prompt,omitempty"`
	MaxToolIterations int      `yaml:"max_tool_iterations,omitempty"`
	// Workspace is the default root for tool paths; empty means the
	// working directory.
	Workspace string `yaml:"workspace,omitempty"`

	Tools       ToolsConfig         `yaml:"tools,omitempty"`
	Permissions permissions.Options `yaml:"permissions"`
	Cache       CacheConfig         `yaml:"cache,omitempty"`
	Transcript  TranscriptConfig    `yaml:"transcript,omitempty"`
	Logging     LoggingConfig       `yaml:"logging,omitempty"`
}

// ToolsConfig controls the default tool set.
type ToolsConfig struct {
	Disabled       bool   `yaml:"disabled,omitempty"`
	SearchAPIKey   string `yaml:"search_api_key,omitempty"`
	SearchEngineID string `yaml:"search_engine_id,omitempty"`
}

// CacheConfig enables the response cache when Size > 0.
type CacheConfig struct {
	Size int           `yaml:"size,omitempty"`
	TTL  time.Duration `yaml:"ttl,omitempty"`
	File string        `yaml:"file,omitempty"`
}

// TranscriptConfig selects where chat history is persisted. An empty DSN
// keeps history in memory only.
type TranscriptConfig struct {
	DSN     string `yaml:"dsn,omitempty"`
	Session string `yaml:"session,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		Model:             DefaultModel,
		MaxTokens:         4096,
		MaxToolIterations: 10,
		Permissions:       permissions.DefaultOptions(),
		Cache:             CacheConfig{TTL: time.Hour},
		Logging:           LoggingConfig{Level: "info"},
	}
}

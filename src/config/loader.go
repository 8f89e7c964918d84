package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
)

// Environment variables read by Load.
const (
	EnvConfigPath = "CURSOR_AGENT_CONFIG"
	EnvModel      = "CURSOR_AGENT_MODEL"
	EnvLogLevel   = "CURSOR_AGENT_LOG_LEVEL"
	EnvYolo       = "CURSOR_AGENT_YOLO"
	EnvWorkspace  = "CURSOR_AGENT_WORKSPACE"
	EnvTranscript = "CURSOR_AGENT_TRANSCRIPT_DSN"
)

const defaultBaseDir = ".cursor-agent"

// DefaultPath returns $CURSOR_AGENT_CONFIG or ~/.cursor-agent/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultBaseDir, "config.yaml"), nil
}

// envVarPattern matches ${VAR_NAME} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} with the variable's value. Unset variables
// are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields lets credentials and connection strings be written
// as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.APIKey = expandEnvVars(cfg.APIKey)
	cfg.Host = expandEnvVars(cfg.Host)
	cfg.Tools.SearchAPIKey = expandEnvVars(cfg.Tools.SearchAPIKey)
	cfg.Tools.SearchEngineID = expandEnvVars(cfg.Tools.SearchEngineID)
	cfg.Transcript.DSN = expandEnvVars(cfg.Transcript.DSN)
}

// Load reads the YAML file at path on top of Defaults, then applies
// environment overrides. An empty path means DefaultPath. A missing file
// yields defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, &ConfigError{Message: "resolve config path: " + err.Error()}
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(&cfg)
			return cfg, cfg.Validate()
		}
		return cfg, &ConfigError{Message: "read " + path + ": " + err.Error()}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, cfg.Validate()
}

// applyDefaults fills zero values left by a partial file.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxToolIterations == 0 {
		cfg.MaxToolIterations = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Cache.Size > 0 && cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Defaults().Cache.TTL
	}
	if cfg.Permissions.YoloMode && cfg.Permissions.YoloPrompt == "" {
		cfg.Permissions.YoloPrompt = permissions.DefaultYoloPrompt
	}
}

// applyEnvOverrides reads CURSOR_AGENT_* variables over file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvYolo); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Permissions.YoloMode = on
		}
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv(EnvTranscript); v != "" {
		cfg.Transcript.DSN = v
	}
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch {
	case c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2):
		return &ConfigError{Message: "temperature must be between 0 and 2"}
	case c.MaxTokens < 0:
		return &ConfigError{Message: "max_tokens must not be negative"}
	case c.MaxToolIterations < 0:
		return &ConfigError{Message: "max_tool_iterations must not be negative"}
	case c.Cache.Size < 0:
		return &ConfigError{Message: "cache.size must not be negative"}
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

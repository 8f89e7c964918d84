package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/cursor-agent/src/permissions"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 10, cfg.MaxToolIterations)
	assert.True(t, cfg.Permissions.DeleteFileProtection)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Zero(t, cfg.Cache.Size)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvModel, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestLoadValidYAML(t *testing.T) {
	t.Setenv(EnvModel, "")
	path := writeConfig(t, `
model: gpt-4o
temperature: 0.2
permissions:
  yolo_mode: true
  command_denylist: ["rm -rf"]
cache:
  size: 64
tools:
  disabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-9)
	assert.True(t, cfg.Permissions.YoloMode)
	assert.Equal(t, permissions.DefaultYoloPrompt, cfg.Permissions.YoloPrompt)
	assert.True(t, cfg.Permissions.DeleteFileProtection, "unset keys keep their defaults")
	assert.Equal(t, []string{"rm -rf"}, cfg.Permissions.CommandDenylist)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Tools.Disabled)
	assert.Equal(t, 4096, cfg.MaxTokens)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "model: [unterminated"))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "failed to parse config")
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	_, err := Load(writeConfig(t, "temperature: 3.5\n"))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "temperature")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvModel, "ollama-llama3")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvYolo, "true")
	t.Setenv(EnvTranscript, "sqlite::memory:")

	cfg, err := Load(writeConfig(t, "model: gpt-4o\n"))
	require.NoError(t, err)
	assert.Equal(t, "ollama-llama3", cfg.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Permissions.YoloMode)
	assert.Equal(t, "sqlite::memory:", cfg.Transcript.DSN)
}

func TestSecretExpansion(t *testing.T) {
	t.Setenv(EnvModel, "")
	t.Setenv("MY_ANTHROPIC_KEY", "sk-test")
	cfg, err := Load(writeConfig(t, `
api_key: ${MY_ANTHROPIC_KEY}
tools:
  search_api_key: ${UNSET_SEARCH_KEY_FOR_TEST}
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "${UNSET_SEARCH_KEY_FOR_TEST}", cfg.Tools.SearchAPIKey)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", p)

	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", "/home/dev")
	p, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/.cursor-agent/config.yaml", p)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvModel, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Model = "gemini-1.5-pro"
	cfg.Cache = CacheConfig{Size: 8, TTL: 5 * time.Minute}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", loaded.Model)
	assert.Equal(t, 5*time.Minute, loaded.Cache.TTL)
	assert.Equal(t, 8, loaded.Cache.Size)
}

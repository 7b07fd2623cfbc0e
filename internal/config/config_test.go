package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "perepys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)
	assert.Equal(t, DefaultOllamaURL, cfg.Humanizer.OllamaURL)
	assert.Equal(t, DefaultHumanizerTimeout, cfg.Humanizer.Timeout)
	assert.True(t, cfg.Humanizer.CheckAvailability)
	assert.False(t, cfg.Humanizer.LanguageGuard)
	assert.Equal(t, BackendRules, cfg.Grammar.Backend)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Zero(t, cfg.Pipeline.UnitTimeout)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, ":5001", cfg.Server.Addr)
	assert.Equal(t, int64(DefaultMaxConcurrent), cfg.Server.MaxConcurrent)
	assert.Equal(t, DefaultChunkChars, cfg.Humanizer.ChunkChars)
	assert.Equal(t, DefaultMaxAttempts, cfg.Humanizer.MaxAttempts)
	assert.Equal(t, DefaultMaxAttempts, cfg.Grammar.MaxAttempts)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
humanizer:
  model: qwen2.5:3b
  timeout: 45s
  language_guard: true
  guard_languages: [en, uk]
  chunk_chars: 0
  max_attempts: 5
grammar:
  backend: ollama
  model: mistral:7b
pipeline:
  workers: 4
  unit_timeout: 10s
store:
  enabled: false
server:
  addr: 127.0.0.1:9000
  max_concurrent: 2
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "qwen2.5:3b", cfg.Humanizer.Model)
	assert.Equal(t, 45*time.Second, cfg.Humanizer.Timeout)
	assert.True(t, cfg.Humanizer.LanguageGuard)
	assert.Equal(t, []string{"en", "uk"}, cfg.Humanizer.GuardLanguages)
	assert.Zero(t, cfg.Humanizer.ChunkChars, "zero disables chunking")
	assert.Equal(t, 5, cfg.Humanizer.MaxAttempts)
	assert.Equal(t, BackendOllama, cfg.Grammar.Backend)
	assert.Equal(t, "mistral:7b", cfg.Grammar.Model)
	assert.Equal(t, DefaultOllamaURL, cfg.Grammar.OllamaURL)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.UnitTimeout)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, int64(2), cfg.Server.MaxConcurrent)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PEREPYS_GRAMMAR_BACKEND", "ollama")
	t.Setenv("PEREPYS_PIPELINE_WORKERS", "3")
	t.Setenv("PEREPYS_PIPELINE_STAGE_TIMEOUT", "2m")
	t.Setenv("PEREPYS_STORE_ENABLED", "false")

	path := writeConfig(t, "grammar:\n  backend: rules\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, BackendOllama, cfg.Grammar.Backend)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.StageTimeout)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad backend", "grammar:\n  backend: languagetool\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"negative workers", "pipeline:\n  workers: -2\n"},
		{"bad server mode", "server:\n  mode: prod\n"},
		{"negative concurrency", "server:\n  max_concurrent: -1\n"},
		{"negative chunk size", "humanizer:\n  chunk_chars: -5\n"},
		{"negative attempts", "grammar:\n  max_attempts: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Store.Enabled)
	assert.True(t, cfg.Humanizer.CheckAvailability)
}

func TestApplyDefaults_KeepsExplicit(t *testing.T) {
	cfg := &Config{Pipeline: PipelineConfig{Workers: 8}, Grammar: GrammarConfig{Backend: BackendOllama}}
	ApplyDefaults(cfg)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, BackendOllama, cfg.Grammar.Backend)
	assert.Equal(t, DefaultGrammarTimeout, cfg.Grammar.Timeout)

	ApplyDefaults(nil)
}

// Package config loads perepys settings from a YAML file, PEREPYS_*
// environment variables, and bound command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/valpere/perepys/internal/logging"
)

// Config is the full application configuration.
type Config struct {
	Log       logging.Config  `mapstructure:"log" yaml:"log"`
	Humanizer HumanizerConfig `mapstructure:"humanizer" yaml:"humanizer"`
	Grammar   GrammarConfig   `mapstructure:"grammar" yaml:"grammar"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// HumanizerConfig configures the first-stage engines.
type HumanizerConfig struct {
	OllamaURL string        `mapstructure:"ollama_url" yaml:"ollama_url"`
	Model     string        `mapstructure:"model" yaml:"model"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxAttempts counts every request to Ollama, including the first.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// LexiconPath names an optional YAML file of extra lexicon rules.
	LexiconPath string `mapstructure:"lexicon_path" yaml:"lexicon_path"`
	// LanguageGuard rejects model rewrites that change the text's language.
	LanguageGuard bool `mapstructure:"language_guard" yaml:"language_guard"`
	// GuardLanguages narrows detection to these ISO 639-1 codes; empty
	// means every language.
	GuardLanguages []string `mapstructure:"guard_languages" yaml:"guard_languages"`
	// ChunkChars caps the code points sent per model request; longer
	// texts are rewritten piece by piece. Zero sends the whole text.
	ChunkChars int `mapstructure:"chunk_chars" yaml:"chunk_chars"`
	// CheckAvailability pings Ollama whenever a model-backed engine is loaded.
	CheckAvailability bool `mapstructure:"check_availability" yaml:"check_availability"`
}

// GrammarConfig configures the second-stage corrector.
type GrammarConfig struct {
	// Backend is "rules" or "ollama".
	Backend   string        `mapstructure:"backend" yaml:"backend"`
	OllamaURL string        `mapstructure:"ollama_url" yaml:"ollama_url"`
	Model     string        `mapstructure:"model" yaml:"model"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxAttempts counts every request to Ollama, including the first.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// PipelineConfig tunes the coordinator.
type PipelineConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	UnitTimeout  time.Duration `mapstructure:"unit_timeout" yaml:"unit_timeout"`
	StageTimeout time.Duration `mapstructure:"stage_timeout" yaml:"stage_timeout"`
}

// StoreConfig configures run history.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Mode is the gin mode: debug, release, or test.
	Mode           string        `mapstructure:"mode" yaml:"mode"`
	MaxConcurrent  int64         `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// Grammar backends.
const (
	BackendRules  = "rules"
	BackendOllama = "ollama"
)

// Validate checks cross-field constraints. Call ApplyDefaults first.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Humanizer.Timeout < 0 {
		return fmt.Errorf("config: humanizer.timeout must be >= 0, got %v", c.Humanizer.Timeout)
	}
	if c.Humanizer.MaxAttempts < 1 {
		return fmt.Errorf("config: humanizer.max_attempts must be >= 1, got %d", c.Humanizer.MaxAttempts)
	}
	if c.Humanizer.ChunkChars < 0 {
		return fmt.Errorf("config: humanizer.chunk_chars must be >= 0, got %d", c.Humanizer.ChunkChars)
	}

	switch c.Grammar.Backend {
	case BackendRules, BackendOllama:
	default:
		return fmt.Errorf("config: grammar.backend %q is invalid; expected rules|ollama", c.Grammar.Backend)
	}
	if c.Grammar.Timeout < 0 {
		return fmt.Errorf("config: grammar.timeout must be >= 0, got %v", c.Grammar.Timeout)
	}
	if c.Grammar.MaxAttempts < 1 {
		return fmt.Errorf("config: grammar.max_attempts must be >= 1, got %d", c.Grammar.MaxAttempts)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.UnitTimeout < 0 || c.Pipeline.StageTimeout < 0 {
		return fmt.Errorf("config: pipeline timeouts must be >= 0")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required when the store is enabled")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("config: server.max_concurrent must be >= 1, got %d", c.Server.MaxConcurrent)
	}
	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("config: server.max_body_bytes must be >= 1, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}

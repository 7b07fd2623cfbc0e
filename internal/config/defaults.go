package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultOllamaURL        = "http://localhost:11434"
	DefaultHumanizerModel   = "llama3.2"
	DefaultHumanizerTimeout = 120 * time.Second
	DefaultChunkChars       = 4000
	DefaultMaxAttempts      = 3

	DefaultGrammarBackend = BackendRules
	DefaultGrammarModel   = "llama3.2"
	DefaultGrammarTimeout = 60 * time.Second

	DefaultWorkers = 1

	DefaultStorePath = "./data/perepys.db"

	DefaultServerAddr     = ":5001"
	DefaultServerMode     = "release"
	DefaultMaxConcurrent  = 4
	DefaultRequestTimeout = 5 * time.Minute
	DefaultMaxBodyBytes   = 1 << 20
)

// setDefaults registers every key with v so that environment variables are
// seen by Unmarshal even when no config file mentions the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stderr"})

	v.SetDefault("humanizer.ollama_url", DefaultOllamaURL)
	v.SetDefault("humanizer.model", DefaultHumanizerModel)
	v.SetDefault("humanizer.timeout", DefaultHumanizerTimeout)
	v.SetDefault("humanizer.max_attempts", DefaultMaxAttempts)
	v.SetDefault("humanizer.chunk_chars", DefaultChunkChars)
	v.SetDefault("humanizer.lexicon_path", "")
	v.SetDefault("humanizer.language_guard", false)
	v.SetDefault("humanizer.guard_languages", []string{})
	v.SetDefault("humanizer.check_availability", true)

	v.SetDefault("grammar.backend", DefaultGrammarBackend)
	v.SetDefault("grammar.ollama_url", DefaultOllamaURL)
	v.SetDefault("grammar.model", DefaultGrammarModel)
	v.SetDefault("grammar.timeout", DefaultGrammarTimeout)
	v.SetDefault("grammar.max_attempts", DefaultMaxAttempts)

	v.SetDefault("pipeline.workers", DefaultWorkers)
	v.SetDefault("pipeline.unit_timeout", time.Duration(0))
	v.SetDefault("pipeline.stage_timeout", time.Duration(0))

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", DefaultStorePath)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("server.request_timeout", DefaultRequestTimeout)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
}

// ApplyDefaults fills zero-value fields of a Config built without viper.
// Booleans cannot be told apart from an explicit false and are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}

	if cfg.Humanizer.OllamaURL == "" {
		cfg.Humanizer.OllamaURL = DefaultOllamaURL
	}
	if cfg.Humanizer.Model == "" {
		cfg.Humanizer.Model = DefaultHumanizerModel
	}
	if cfg.Humanizer.Timeout == 0 {
		cfg.Humanizer.Timeout = DefaultHumanizerTimeout
	}
	if cfg.Humanizer.MaxAttempts == 0 {
		cfg.Humanizer.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.Grammar.Backend == "" {
		cfg.Grammar.Backend = DefaultGrammarBackend
	}
	if cfg.Grammar.OllamaURL == "" {
		cfg.Grammar.OllamaURL = DefaultOllamaURL
	}
	if cfg.Grammar.Model == "" {
		cfg.Grammar.Model = DefaultGrammarModel
	}
	if cfg.Grammar.Timeout == 0 {
		cfg.Grammar.Timeout = DefaultGrammarTimeout
	}
	if cfg.Grammar.MaxAttempts == 0 {
		cfg.Grammar.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = DefaultWorkers
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.MaxConcurrent == 0 {
		cfg.Server.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Default returns a Config holding only defaults. Fields whose zero value
// is meaningful are set here rather than in ApplyDefaults.
func Default() *Config {
	cfg := &Config{
		Store:     StoreConfig{Enabled: true},
		Humanizer: HumanizerConfig{CheckAvailability: true, ChunkChars: DefaultChunkChars},
	}
	ApplyDefaults(cfg)
	return cfg
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix maps nested keys like "grammar.backend" to PEREPYS_GRAMMAR_BACKEND.
const envPrefix = "PEREPYS"

// NewViper returns a viper instance with the PEREPYS_ env binding and every
// default registered. Commands bind their flags into it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads configPath into v when it is non-empty, then unmarshals,
// defaults, and validates the result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile is Load on a fresh viper instance.
func LoadFile(configPath string) (*Config, error) {
	return Load(NewViper(), configPath)
}

/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// appCfg and logger are set by the root pre-run hook for every command.
	appCfg *config.Config
	logger logging.Logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "perepys",
	Short: "Humanize and grammar-correct text",
	Long: `A CLI application that rewrites text in two stages: a humanizing
rewrite over one or more passes, then sentence-by-sentence grammar correction.

The humanizer runs either a built-in lexical rewriter or an Ollama model.
Grammar correction uses built-in rules or an Ollama model.

Use "perepys process --help" for processing options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper()
		if err := bindFlags(v, cmd); err != nil {
			return err
		}

		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		logging.SetDefault(l)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"workers":    "pipeline.workers",
	"db":         "store.path",
	"addr":       "server.addr",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format: console or json")
}

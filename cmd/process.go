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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/perepys/internal"
	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/engine"
	"github.com/valpere/perepys/internal/logging"
	"github.com/valpere/perepys/internal/markdown"
	"github.com/valpere/perepys/internal/pipeline"
	"github.com/valpere/perepys/internal/store"
)

var (
	inputText  string
	inputFile  string
	outputFile string

	mode        string
	domain      string
	passes      int
	noML        bool
	quiet       bool
	skipGrammar bool
	isMarkdown  bool

	workers int
	noCache bool
	dbPath  string
)

var errNoText = errors.New("no text provided")

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Humanize and grammar-correct text",
	Long: `Run text through the two-stage pipeline and print the result.

Input is read from --file, then --text, then stdin. The result goes to
--output when given, otherwise to stdout. Progress is logged to stderr
unless --quiet is set.

Modes:   academic, professional, balanced
Domains: academic, medical, legal, scientific, technical`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile != "" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		var stdin io.Reader
		if inputFile == "" && inputText == "" {
			stdin = cmd.InOrStdin()
			if isTerminal(stdin) && !quiet {
				fmt.Fprintln(os.Stderr, "Enter your text (press Ctrl+D when done):")
			}
		}
		text, err := readInput(inputFile, inputText, stdin)
		if err != nil {
			return err
		}
		if isMarkdown {
			text = markdown.ToPlainText([]byte(text))
		}
		if strings.TrimSpace(text) == "" {
			return errNoText
		}

		cfg, err := pipeline.NewConfig(mode, domain, !noML, passes, skipGrammar)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		loader := engine.NewLoader(appCfg, logger)
		run := &internal.ProcessingRun{
			Mode:        string(cfg.Mode()),
			Domain:      string(cfg.Domain()),
			UseML:       cfg.UseML(),
			Passes:      cfg.Passes(),
			SkipGrammar: cfg.SkipGrammar(),
			Engine:      loader.EngineName(cfg),
			SourceText:  text,
		}

		var db *store.Store
		if appCfg.Store.Enabled && !noCache {
			db, err = openStore(appCfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if cached, found, cacheErr := db.GetCachedResult(ctx, text, run.ConfigKey()); cacheErr == nil && found {
				if !quiet {
					fmt.Fprintln(os.Stderr, "Using cached result")
				}
				run.Cached = true
				return finish(cmd, db, run, pipeline.NewResult(text, cached), 0)
			}
		}

		coord, err := pipeline.New(cfg, loader,
			pipeline.WithLogger(logger),
			pipeline.WithWorkers(appCfg.Pipeline.Workers),
			pipeline.WithUnitTimeout(appCfg.Pipeline.UnitTimeout),
			pipeline.WithStageTimeout(appCfg.Pipeline.StageTimeout),
		)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := coord.Run(ctx, text, !quiet)
		if err != nil {
			return err
		}
		return finish(cmd, db, run, result, time.Since(start))
	},
}

// finish writes the result and records the run when a store is open.
func finish(cmd *cobra.Command, db *store.Store, run *internal.ProcessingRun, result *pipeline.Result, d time.Duration) error {
	if outputFile != "" {
		if err := writeOutput(outputFile, result.Text); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	}

	if db == nil {
		return nil
	}
	run.ResultText = result.Text
	run.OriginalWords = result.Metrics.OriginalWords
	run.ResultWords = result.Metrics.ResultWords
	run.OriginalChars = result.Metrics.OriginalChars
	run.ResultChars = result.Metrics.ResultChars
	run.Duration = d
	if err := db.SaveRun(cmd.Context(), run); err != nil {
		logger.Warn("failed to save run", logging.Err(err))
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&inputText, "text", "t", "", "Text to process")
	processCmd.Flags().StringVarP(&inputFile, "file", "f", "", "File containing text to process")
	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (prints to stdout if not specified)")

	processCmd.Flags().StringVarP(&mode, "mode", "m", string(pipeline.ModeAcademic), "Humanizer mode: academic, professional, balanced")
	processCmd.Flags().StringVarP(&domain, "domain", "d", string(pipeline.DomainAcademic), "Domain: academic, medical, legal, scientific, technical")
	processCmd.Flags().IntVarP(&passes, "passes", "p", 2, "Number of humanization passes (1-3)")
	processCmd.Flags().BoolVar(&noML, "no-ml", false, "Use the built-in lexical humanizer instead of Ollama")
	processCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final result")
	processCmd.Flags().BoolVar(&skipGrammar, "skip-grammar", false, "Skip grammar correction")
	processCmd.Flags().BoolVar(&isMarkdown, "markdown", false, "Treat input as Markdown and strip the markup first")

	processCmd.Flags().IntVarP(&workers, "workers", "w", config.DefaultWorkers, "Sentences corrected concurrently")
	processCmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write run history")
	processCmd.Flags().StringVar(&dbPath, "db", config.DefaultStorePath, "Database path for run history")
}

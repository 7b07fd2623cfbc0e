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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/perepys/internal/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history",
	Long:  `List, inspect, and clear the SQLite history of processed texts and its result cache.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs in history.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tMODE\tDOMAIN\tPASSES\tENGINE\tCACHED\tDURATION\tTEXT")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%v\t%s\t%s\n",
				r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"),
				r.Mode, r.Domain, r.Passes, r.Engine, r.Cached, r.Duration,
				snippet(strings.Join(strings.Fields(r.SourceText), " "), 40))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run with its source and result text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		r, found, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get run: %w", err)
		}
		if !found {
			return fmt.Errorf("run %s not found", args[0])
		}

		fmt.Printf("ID:       %s\n", r.ID)
		fmt.Printf("When:     %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Settings: mode=%s domain=%s passes=%d ml=%v skip-grammar=%v\n",
			r.Mode, r.Domain, r.Passes, r.UseML, r.SkipGrammar)
		fmt.Printf("Engine:   %s (cached: %v, %s)\n", r.Engine, r.Cached, r.Duration)
		fmt.Printf("Words:    %d -> %d\n", r.OriginalWords, r.ResultWords)
		fmt.Printf("Chars:    %d -> %d\n", r.OriginalChars, r.ResultChars)
		fmt.Printf("\nSource:\n%s\n\nResult:\n%s\n", r.SourceText, r.ResultText)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total runs:      %d\n", stats.TotalRuns)
		fmt.Printf("Model runs:      %d\n", stats.MLRuns)
		fmt.Printf("Cache hits:      %d\n", stats.CachedRuns)
		fmt.Printf("Cached results:  %d\n", stats.CachedResults)
		fmt.Printf("Total cache use: %d\n", stats.TotalCacheUse)
		fmt.Printf("Avg duration:    %s\n", stats.AvgDuration)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.DeleteRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		if !deleted {
			return fmt.Errorf("run %s not found", args[0])
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every run and cached result",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d runs from history.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultStorePath, "Database path")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}

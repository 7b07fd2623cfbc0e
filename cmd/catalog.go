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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/perepys/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List supported domains and modes",
}

var catalogDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printEntries(catalog.Domains())
	},
}

var catalogModesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List humanizer modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printEntries(catalog.Modes())
	},
}

func printEntries(entries []catalog.Entry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Name, e.Description)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.AddCommand(catalogDomainsCmd)
	catalogCmd.AddCommand(catalogModesCmd)
}

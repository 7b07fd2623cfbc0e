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
	"github.com/spf13/cobra"

	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/engine"
	"github.com/valpere/perepys/internal/metrics"
	"github.com/valpere/perepys/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the pipeline over HTTP.

Endpoints:
  POST /process   process {text, mode, domain, use_ml, passes, skip_grammar}
  GET  /domains   list domains
  GET  /modes     list humanizer modes
  GET  /health    liveness and version
  GET  /metrics   Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		opts := []server.Option{
			server.WithLogger(logger),
			server.WithMetrics(metrics.New()),
			server.WithVersion(version),
		}
		if appCfg.Store.Enabled {
			db, err := openStore(appCfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			opts = append(opts, server.WithStore(db))
		}

		srv := server.New(appCfg, engine.NewLoader(appCfg, logger), opts...)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", config.DefaultServerAddr, "Listen address")
	serveCmd.Flags().StringVar(&dbPath, "db", config.DefaultStorePath, "Database path for run history")
}

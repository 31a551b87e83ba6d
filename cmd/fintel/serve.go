package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fintel/api"
)

// --- Serve Command (dashboard + API server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}

		providers := newProviders(cfg, logger)
		orch, err := newOrchestrator(cfg, providers, logger)
		if err != nil {
			return err
		}

		srv, err := api.NewServer(cfg, orch, providers,
			api.WithLogger(logger),
			api.WithVersion(version),
		)
		if err != nil {
			return err
		}
		orch.Subscribe(srv.PublishEvent)

		fmt.Fprintf(cmd.OutOrStdout(), "Starting fintel on http://%s (runtime: %s)\n", cfg.API.Addr(), orch.Runtime())
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	rootCmd.AddCommand(serveCmd)
}

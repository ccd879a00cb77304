package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oriys/pocketetl/config"
	"github.com/oriys/pocketetl/internal/logging"
	"github.com/oriys/pocketetl/metricssink/prometheus"
)

func metricsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve a Prometheus scrape endpoint",
		Long:  "Start an HTTP server exposing a /metrics endpoint for a pocketetl sink, useful when wiring pipelines run by other processes behind a shared registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)
			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

			sink := prometheus.New(cfg.Metrics.Namespace, cfg.Metrics.HistogramBuckets)
			mux := http.NewServeMux()
			mux.Handle("/metrics", sink.Handler())

			logging.Op().Info("metrics endpoint listening", "addr", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "Address to serve /metrics on")

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pocketetl",
		Short: "pocketetl command-line runner",
		Long:  "Run declaratively-configured pocketetl pipelines from the command line",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a pipeline config file (YAML)")
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(metricsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/faultline/internal/config"
	"github.com/aretw0/faultline/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faultline",
	Short: "faultline injects controlled faults into HTTP services",
	Long: `faultline runs an HTTP service whose request pipeline can be told, at runtime,
to add latency (DelaySimulation) or to fail with a gateway timeout (TimeoutError).
Flags are stored in memory, in Redis, or in another faultline instance.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
}

// loadConfig reads the config file named by --config, applies environment
// overrides and builds the logger for the effective log level.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Environ())
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/routecast/routecast/router"
)

var (
	// Persistent CLI flags
	configPath string // Path to a YAML config file; empty uses defaults
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "routecast",
	Short: "Adaptive request router for heterogeneous backend endpoints",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// loadConfig resolves the effective configuration: file if provided,
// defaults otherwise.
func loadConfig() router.Config {
	if configPath == "" {
		return router.DefaultConfig()
	}
	cfg, err := router.LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config %s: %v", configPath, err)
	}
	return cfg
}

// validateCmd checks a config file without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a router configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Config invalid: %v", err)
		}
		logrus.Infof("Config OK: breaker threshold=%d timeout=%v, shaper rate=%d/%v, predictor cold-start=%d",
			cfg.Breaker.FailureThreshold, cfg.Breaker.Timeout(),
			cfg.Shaper.ProcessingRate, cfg.Shaper.Window(),
			cfg.Predictor.ColdStartSamples)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(demoCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

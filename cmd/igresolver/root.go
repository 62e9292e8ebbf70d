package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igresolver/pkg/config"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "igresolver",
	Short: "HTTP microservice resolving Instagram post URLs to their media",
	Long: `igresolver resolves a post, reel or tv URL to its underlying media:
either flattened post metadata with per-item media URLs, or the downloaded
bytes packaged as a single file or zip archive.

An optional persisted session authenticates upstream access; without one the
service degrades to anonymous access and keeps serving.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: .igresolver.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig builds the effective configuration honoring global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/config"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var configFlag string

var rootCmd = &cobra.Command{
	Use:           "pipegraph",
	Short:         "Live audio-graph mirror and control engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file")
}

// getConfigPath returns the configuration file path.
// Flag wins, then the PIPEGRAPH_CONFIG environment variable, then the default.
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if path := os.Getenv("PIPEGRAPH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads the configuration for a subcommand. A missing file
// falls back to defaults so one-shot commands work out of the box.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) && configFlag == "" && os.Getenv("PIPEGRAPH_CONFIG") == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

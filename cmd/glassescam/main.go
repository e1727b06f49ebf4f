package main

import (
	"fmt"
	"log/slog"
	"os"

	cli "github.com/spf13/cobra"

	"github.com/menta2k/glasses-detector/internal/config"
	"github.com/menta2k/glasses-detector/internal/logging"
)

var (
	// The Root Cli Handler
	rootCmd = &cli.Command{
		Use:           "glassescam",
		Short:         "Glasses detection on camera frames and training-data preprocessing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configPath string
	logLevel   string
	noColor    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetConfigPath(), "path to the JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")

	rootCmd.AddCommand(resizeCmd, detectCmd, configCmd)
}

// loadConfig reads the configuration, applies the global flags and installs
// the default logger.
func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("no-color") {
		cfg.Log.NoColor = noColor
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

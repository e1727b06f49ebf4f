package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/cobra"

	"github.com/menta2k/glasses-detector/internal/config"
)

var configForce bool

var configCmd = &cli.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cli.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cli.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing configuration file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cli.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
	}

	cfg := config.Default()
	if err := cfg.SaveToFile(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", configPath)
	return nil
}

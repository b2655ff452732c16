package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GraphiteEditor/graphdoc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage graphdoc configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "graphdoc", "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		cmd.Printf("config already exists at %s\n", path)
		return nil
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}

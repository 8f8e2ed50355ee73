package main

import (
	"context"
	"fmt"
	"os"

	"FloatOverlay/internal/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "floatoverlay",
	Short: "A draggable always-on-top overlay with a local control API",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir/floatoverlay/config.yaml)")
	rootCmd.AddCommand(runCmd, launchCmd, startCmd, stopCmd, statusCmd, initCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

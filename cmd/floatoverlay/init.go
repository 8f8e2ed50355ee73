package main

import (
	"fmt"
	"os"

	"FloatOverlay/internal/config"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := configPath
		if p == "" {
			var err error
			if p, err = config.Path(); err != nil {
				return err
			}
		}
		if err := writeDefaultConfig(p, initForce); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

// writeDefaultConfig writes the default config to path unless a file is
// already there and force is false.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := config.SaveTo(path, config.Default()); err != nil {
		return fmt.Errorf("config save: %w", err)
	}
	return nil
}

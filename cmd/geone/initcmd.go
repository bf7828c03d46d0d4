package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alecomunian/geone/pkg/config"
)

var initConfigPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default scenario file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveConfig(config.DefaultConfig(), initConfigPath); err != nil {
			return err
		}
		fmt.Printf("wrote default scenario to %s\n", initConfigPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initConfigPath, "config", "scenario.yaml", "destination scenario file")
	rootCmd.AddCommand(initCmd)
}

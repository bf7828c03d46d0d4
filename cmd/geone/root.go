package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "geone",
	Short: "Pluri-Gaussian simulation of categorical fields",
	Long: `geone simulates categorical (facies) fields on regular grids by
truncating two latent Gaussian random fields, honoring hard categorical
data through Metropolis-Hastings conditioning of the latent values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"log level (trace, debug, info, warn, error)")
}

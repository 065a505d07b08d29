package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/doppel/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "doppelctl",
	Short: "Face similarity toolbox for doppel",
	Long: `doppelctl works with face detections produced by an external detector
(68 landmark points plus an identity embedding).

It can score two detection files locally, write synthetic detections for
testing, and load test a running doppel service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(
			logger.WithFormat(mustGetString(cmd, "log-format")),
			logger.WithWriter(os.Stderr),
		); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return logger.SetLevelString(mustGetString(cmd, "log-level"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

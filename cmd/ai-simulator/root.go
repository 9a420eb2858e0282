package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/AdiPat/ai-simulator/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ai-simulator",
	Short: "Turn-based artificial world simulator",
	Long:  "ai-simulator runs an operator-driven artificial world simulation and ships utilities for replaying and reporting on its record logs.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env next to the binary supplies endpoint and API key vars.
		_ = godotenv.Load()
		slog.SetDefault(logging.New(verbose))
	},
}

// Execute runs the root command. Exit goes through atexit so writer
// flush handlers run even on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(reportCmd)
}

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AdiPat/ai-simulator/internal/report"
)

var (
	reportInput  string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML report from a record log",
	Long:  "report aggregates a JSONL record log into a static HTML run report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := report.Render(reportInput, reportOutput); err != nil {
			return err
		}
		slog.Info("report written", "path", reportOutput)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "Path to record log file")
	reportCmd.Flags().StringVar(&reportOutput, "output", "build/report.html", "Path for the rendered report")
	reportCmd.MarkFlagRequired("input")
}
